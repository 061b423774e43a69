// Package auth gates operator commands on the configured admin list.
package auth

import "fmt"

// AdminChecker answers whether a Telegram user may operate the bot. The
// admin list is fixed at startup from configuration.
type AdminChecker struct {
	adminIDs map[int64]struct{}
}

// NewAdminChecker creates a checker for the given admin list.
func NewAdminChecker(adminIDs []int64) (*AdminChecker, error) {
	if len(adminIDs) == 0 {
		return nil, fmt.Errorf("admin id list cannot be empty")
	}
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminChecker{adminIDs: ids}, nil
}

// IsAdmin reports whether the user id belongs to the admin list.
func (ac *AdminChecker) IsAdmin(userID int64) bool {
	_, ok := ac.adminIDs[userID]
	return ok
}
