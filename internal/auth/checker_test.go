package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdminChecker_RequiresAdmins(t *testing.T) {
	_, err := NewAdminChecker(nil)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	checker, err := NewAdminChecker([]int64{100, 200})
	require.NoError(t, err)

	assert.True(t, checker.IsAdmin(100))
	assert.True(t, checker.IsAdmin(200))
	assert.False(t, checker.IsAdmin(300))
}
