package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublishTime_Separators(t *testing.T) {
	inputs := []string{"14:30", "14 30", "14.30", "14,30", "14;30", "14-30", "14_30", "  14:30  "}
	for _, input := range inputs {
		parsed, err := ParsePublishTime(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "14:30", parsed.String(), "input %q", input)
	}
}

func TestParsePublishTime_ZeroPadding(t *testing.T) {
	parsed, err := ParsePublishTime("7 5")
	require.NoError(t, err)
	assert.Equal(t, "07:05", parsed.String())
}

func TestParsePublishTime_Rejects(t *testing.T) {
	cases := []struct {
		input string
		err   error
	}{
		{"24:00", ErrTimeOutOfRange},
		{"12:60", ErrTimeOutOfRange},
		{"abc", ErrInvalidTimeFormat},
		{"14", ErrInvalidTimeFormat},
		{"14:30:00", ErrInvalidTimeFormat},
		{"", ErrInvalidTimeFormat},
	}
	for _, tc := range cases {
		_, err := ParsePublishTime(tc.input)
		assert.ErrorIs(t, err, tc.err, "input %q", tc.input)
	}
}

func TestPlan_SlotCountAndOrdering(t *testing.T) {
	start := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	slots, err := Plan(Params{
		PeriodDays:  3,
		DailyPosts:  4,
		StartDate:   start,
		PublishTime: TimeOfDay{Hour: 12, Minute: 0},
		Themes:      []string{"a", "b"},
	})
	require.NoError(t, err)
	require.Len(t, slots, 12)

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].At.After(slots[i-1].At),
			"slot %d (%s) must fire after slot %d (%s)", i, slots[i].At, i-1, slots[i-1].At)
	}

	// First slot of each day sits at the configured publish time; the rest
	// of the day is offset by one minute per post.
	assert.Equal(t, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC), slots[0].At)
	assert.Equal(t, time.Date(2025, 3, 14, 12, 3, 0, 0, time.UTC), slots[3].At)
	assert.Equal(t, time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC), slots[8].At)
}

func TestPlan_ThemeRotation(t *testing.T) {
	slots, err := Plan(Params{
		PeriodDays:  2,
		DailyPosts:  3,
		StartDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PublishTime: TimeOfDay{Hour: 9, Minute: 30},
		Themes:      []string{"t0", "t1", "t2"},
	})
	require.NoError(t, err)
	require.Len(t, slots, 6)

	wantIndexes := []int{0, 1, 2, 0, 1, 2}
	for i, slot := range slots {
		assert.Equal(t, wantIndexes[i], slot.ThemeIndex, "slot %d", i)
	}
}

func TestPlan_EmptyThemesGetPlaceholder(t *testing.T) {
	slots, err := Plan(Params{
		PeriodDays:  1,
		DailyPosts:  2,
		StartDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PublishTime: TimeOfDay{Hour: 10, Minute: 0},
	})
	require.NoError(t, err)
	for _, slot := range slots {
		assert.Equal(t, placeholderTheme, slot.Theme)
		assert.Equal(t, -1, slot.ThemeIndex)
	}
}

func TestPlan_ThemesShorterThanSlots(t *testing.T) {
	slots, err := Plan(Params{
		PeriodDays:  2,
		DailyPosts:  2,
		StartDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PublishTime: TimeOfDay{Hour: 10, Minute: 0},
		Themes:      []string{"only"},
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for _, slot := range slots {
		assert.Equal(t, "only", slot.Theme)
	}
}

func TestPlan_InvalidParams(t *testing.T) {
	_, err := Plan(Params{PeriodDays: 0, DailyPosts: 1})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Plan(Params{PeriodDays: 1, DailyPosts: 0})
	assert.ErrorIs(t, err, ErrInvalidDailyCount)
}

func TestDefaultStartDate_IsTomorrowInLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	got := DefaultStartDate(loc)

	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, tomorrow.Year(), got.Year())
	assert.Equal(t, tomorrow.YearDay(), got.YearDay())
}

func TestPlan_KeepsStartDateLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	slots, err := Plan(Params{
		PeriodDays:  1,
		DailyPosts:  1,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, loc),
		PublishTime: TimeOfDay{Hour: 18, Minute: 45},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, loc, slots[0].At.Location())
	assert.Equal(t, 18, slots[0].At.Hour())
	assert.Equal(t, 45, slots[0].At.Minute())
}
