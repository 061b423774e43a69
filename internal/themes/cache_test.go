package themes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetAndAll(t *testing.T) {
	c := NewCache()
	assert.Empty(t, c.All())

	c.Set([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, c.All())
	assert.Equal(t, 2, c.Len())
}

func TestCache_SetTruncatesToMax(t *testing.T) {
	themes := make([]string, MaxThemes+10)
	for i := range themes {
		themes[i] = fmt.Sprintf("theme %d", i)
	}
	c := NewCache()
	c.Set(themes)
	assert.Equal(t, MaxThemes, c.Len())
}

func TestCache_AllReturnsCopy(t *testing.T) {
	c := NewCache()
	c.Set([]string{"a", "b"})

	got := c.All()
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, c.All())
}

func TestCache_AddRespectsCap(t *testing.T) {
	c := NewCache()
	for i := 0; i < MaxThemes; i++ {
		assert.True(t, c.Add(fmt.Sprintf("theme %d", i)))
	}
	assert.False(t, c.Add("one too many"))
	assert.Equal(t, MaxThemes, c.Len())
}

func TestCache_Remove(t *testing.T) {
	c := NewCache()
	c.Set([]string{"a", "b", "c"})

	assert.True(t, c.Remove(1))
	assert.Equal(t, []string{"a", "c"}, c.All())

	assert.False(t, c.Remove(5))
	assert.False(t, c.Remove(-1))
}
