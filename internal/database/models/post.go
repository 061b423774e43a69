package models

import "time"

// GenerationStatus marks the outcome of a text or image generation attempt.
type GenerationStatus string

const (
	GenerationSuccess GenerationStatus = "success"
	GenerationError   GenerationStatus = "error"
)

// Post is the unit of content and scheduling: generated text plus an
// optional image, a one-shot publication slot, and the engagement numbers
// collected after publication.
//
// Lifecycle invariants enforced by the repository:
//   - Published == true implies PublishedAt and ChannelMessageID are set.
//   - IsScheduled == true implies ScheduledAt is set.
//   - Once Published is true the row is immutable for the scheduling
//     subsystem; ChannelMessageID is never overwritten.
type Post struct {
	ID int64

	// Text generation
	TextPrompt      string
	Text            string
	TextModel       string
	TextGeneratedAt *time.Time
	TextStatus      GenerationStatus

	// Image generation
	ImageRef         string
	ImagePrompt      string
	ImageModel       string
	ImageGeneratedAt *time.Time
	ImageStatus      GenerationStatus

	ErrorMessage string

	// Scheduling
	IsScheduled bool
	ScheduledAt *time.Time

	// Publication
	Published        bool
	PublishedAt      *time.Time
	ChannelMessageID int

	// Engagement, populated by the stats poller.
	Views     int64
	Comments  int
	Reactions map[string]int

	CreatedAt time.Time
}
