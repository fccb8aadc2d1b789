package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2000, time.January, 1, h, m, 0, 0, time.UTC)
}

func TestGenerate_FragmentsWindow(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		duration time.Duration
		want     []Slot
	}{
		{
			name: "even split",
			from: at(8, 0), to: at(9, 0), duration: 20 * time.Minute,
			want: []Slot{
				{at(8, 0), at(8, 20)},
				{at(8, 20), at(8, 40)},
				{at(8, 40), at(9, 0)},
			},
		},
		{
			name: "trailing remainder dropped",
			from: at(8, 0), to: at(8, 50), duration: 20 * time.Minute,
			want: []Slot{
				{at(8, 0), at(8, 20)},
				{at(8, 20), at(8, 40)},
			},
		},
		{
			name: "window shorter than duration",
			from: at(8, 0), to: at(8, 10), duration: 20 * time.Minute,
			want: nil,
		},
		{
			name: "single exact slot",
			from: at(14, 0), to: at(14, 30), duration: 30 * time.Minute,
			want: []Slot{{at(14, 0), at(14, 30)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.from, tt.to, tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Slots must be contiguous, non-overlapping, full-length, start at the window
// start, end at or before the window end, and count floor(window/duration).
func TestGenerate_Properties(t *testing.T) {
	from, to := at(9, 0), at(13, 35)
	duration := 25 * time.Minute

	slots, err := Generate(from, to, duration)
	require.NoError(t, err)

	wantCount := int(to.Sub(from) / duration)
	require.Len(t, slots, wantCount)

	assert.True(t, slots[0].Start.Equal(from))
	assert.False(t, slots[len(slots)-1].End.After(to))

	for i, s := range slots {
		assert.Equal(t, duration, s.End.Sub(s.Start))
		if i > 0 {
			assert.True(t, s.Start.Equal(slots[i-1].End), "slots must be contiguous")
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(at(8, 0), at(12, 0), 15*time.Minute)
	require.NoError(t, err)
	b, err := Generate(at(8, 0), at(12, 0), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_RejectsInvalidInput(t *testing.T) {
	_, err := Generate(at(9, 0), at(10, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = Generate(at(9, 0), at(10, 0), -5*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = Generate(at(10, 0), at(9, 0), 15*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Generate(at(9, 0), at(9, 0), 15*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(at(8, 0), at(9, 0), at(8, 30), at(9, 30)))
	assert.True(t, Overlaps(at(8, 30), at(9, 30), at(8, 0), at(9, 0)))
	assert.True(t, Overlaps(at(8, 0), at(10, 0), at(8, 30), at(9, 0)))
	// Touching boundaries do not overlap (half-open intervals).
	assert.False(t, Overlaps(at(8, 0), at(9, 0), at(9, 0), at(10, 0)))
	assert.False(t, Overlaps(at(9, 0), at(10, 0), at(8, 0), at(9, 0)))
}
