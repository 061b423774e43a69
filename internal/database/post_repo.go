package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dn0sh/travel-content-bot/internal/database/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const postColumns = `id, text_prompt, text, text_model, text_generated_at, text_status,
	image_ref, image_prompt, image_model, image_generated_at, image_status,
	error_message, is_scheduled, scheduled_at, published, published_at,
	channel_message_id, views, comments, reactions, created_at`

// PostgresPostRepository implements PostRepository on top of Postgres.
type PostgresPostRepository struct {
	db *sql.DB
}

var _ PostRepository = (*PostgresPostRepository)(nil)

// NewPostgresPostRepository wires a sql.DB implementation.
func NewPostgresPostRepository(db *sql.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// Create persists a new post and returns its assigned id.
func (r *PostgresPostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	reactions, err := marshalReactions(post.Reactions)
	if err != nil {
		return 0, err
	}

	query, args, err := psql.Insert("posts").
		Columns("text_prompt", "text", "text_model", "text_generated_at", "text_status",
			"image_ref", "image_prompt", "image_model", "image_generated_at", "image_status",
			"error_message", "is_scheduled", "scheduled_at", "reactions").
		Values(post.TextPrompt, post.Text, post.TextModel, post.TextGeneratedAt, statusOrDefault(post.TextStatus),
			post.ImageRef, post.ImagePrompt, post.ImageModel, post.ImageGeneratedAt, statusOrDefault(post.ImageStatus),
			post.ErrorMessage, post.IsScheduled, post.ScheduledAt, reactions).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

// GetByID loads one post by id.
func (r *PostgresPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query, args, err := psql.Select(postColumns).
		From("posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

// Update applies a partial update built from the non-nil fields.
func (r *PostgresPostRepository) Update(ctx context.Context, id int64, update PostUpdate) error {
	builder := psql.Update("posts").Where(sq.Eq{"id": id})

	set := false
	if update.TextPrompt != nil {
		builder = builder.Set("text_prompt", *update.TextPrompt)
		set = true
	}
	if update.Text != nil {
		builder = builder.Set("text", *update.Text)
		set = true
	}
	if update.TextModel != nil {
		builder = builder.Set("text_model", *update.TextModel)
		builder = builder.Set("text_generated_at", time.Now().UTC())
		set = true
	}
	if update.TextStatus != nil {
		builder = builder.Set("text_status", string(*update.TextStatus))
		set = true
	}
	if update.ImageRef != nil {
		builder = builder.Set("image_ref", *update.ImageRef)
		set = true
	}
	if update.ImagePrompt != nil {
		builder = builder.Set("image_prompt", *update.ImagePrompt)
		set = true
	}
	if update.ImageModel != nil {
		builder = builder.Set("image_model", *update.ImageModel)
		builder = builder.Set("image_generated_at", time.Now().UTC())
		set = true
	}
	if update.ImageStatus != nil {
		builder = builder.Set("image_status", string(*update.ImageStatus))
		set = true
	}
	if update.ErrorMessage != nil {
		builder = builder.Set("error_message", *update.ErrorMessage)
		set = true
	}
	if update.IsScheduled != nil {
		builder = builder.Set("is_scheduled", *update.IsScheduled)
		set = true
	}
	if update.ScheduledAt != nil {
		builder = builder.Set("scheduled_at", *update.ScheduledAt)
		set = true
	}
	if !set {
		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}
	return checkAffected(result)
}

// MarkPublished performs the atomic planned -> published transition. The
// guard on published=FALSE makes a duplicate transition impossible and
// keeps channel_message_id from ever being overwritten.
func (r *PostgresPostRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, messageID int) error {
	query, args, err := psql.Update("posts").
		Set("published", true).
		Set("published_at", publishedAt).
		Set("channel_message_id", messageID).
		Where(sq.Eq{"id": id, "published": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build publish update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark post %d published: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the post is gone or it was already published.
	var published bool
	err = r.db.QueryRowContext(ctx, "SELECT published FROM posts WHERE id = $1", id).Scan(&published)
	if err == sql.ErrNoRows {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("check post %d: %w", id, err)
	}
	if published {
		return ErrAlreadyPublished
	}
	return fmt.Errorf("mark post %d published: no rows updated", id)
}

// Delete removes a post record.
func (r *PostgresPostRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return checkAffected(result)
}

// ListScheduledPending returns every post awaiting publication, ordered by
// fire time so startup recovery re-schedules them in a stable order.
func (r *PostgresPostRepository) ListScheduledPending(ctx context.Context) ([]models.Post, error) {
	query, args, err := psql.Select(postColumns).
		From("posts").
		Where(sq.Eq{"is_scheduled": true, "published": false}).
		OrderBy("scheduled_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return r.queryPosts(ctx, query, args)
}

// ListPublished returns published posts, newest first.
func (r *PostgresPostRepository) ListPublished(ctx context.Context) ([]models.Post, error) {
	query, args, err := psql.Select(postColumns).
		From("posts").
		Where(sq.Eq{"published": true}).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return r.queryPosts(ctx, query, args)
}

// UpdateStats writes engagement numbers collected by the stats poller.
func (r *PostgresPostRepository) UpdateStats(ctx context.Context, id int64, views int64, comments int, reactions map[string]int) error {
	payload, err := marshalReactions(reactions)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("posts").
		Set("views", views).
		Set("comments", comments).
		Set("reactions", payload).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stats update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update stats for post %d: %w", id, err)
	}
	return checkAffected(result)
}

func (r *PostgresPostRepository) queryPosts(ctx context.Context, query string, args []interface{}) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post            models.Post
		textGeneratedAt sql.NullTime
		imgGeneratedAt  sql.NullTime
		scheduledAt     sql.NullTime
		publishedAt     sql.NullTime
		textStatus      string
		imageStatus     string
		reactions       []byte
	)

	err := row.Scan(
		&post.ID, &post.TextPrompt, &post.Text, &post.TextModel, &textGeneratedAt, &textStatus,
		&post.ImageRef, &post.ImagePrompt, &post.ImageModel, &imgGeneratedAt, &imageStatus,
		&post.ErrorMessage, &post.IsScheduled, &scheduledAt, &post.Published, &publishedAt,
		&post.ChannelMessageID, &post.Views, &post.Comments, &reactions, &post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.TextStatus = models.GenerationStatus(textStatus)
	post.ImageStatus = models.GenerationStatus(imageStatus)
	if textGeneratedAt.Valid {
		post.TextGeneratedAt = &textGeneratedAt.Time
	}
	if imgGeneratedAt.Valid {
		post.ImageGeneratedAt = &imgGeneratedAt.Time
	}
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &post.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshal reactions: %w", err)
		}
	}
	return &post, nil
}

func marshalReactions(reactions map[string]int) ([]byte, error) {
	if reactions == nil {
		reactions = map[string]int{}
	}
	payload, err := json.Marshal(reactions)
	if err != nil {
		return nil, fmt.Errorf("marshal reactions: %w", err)
	}
	return payload, nil
}

func statusOrDefault(status models.GenerationStatus) string {
	if status == "" {
		return string(models.GenerationSuccess)
	}
	return string(status)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	return nil
}
