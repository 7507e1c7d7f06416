package tonal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	p := DefaultTuningParams()

	tests := map[int]TuningState{
		0:   InTune,
		5:   InTune,
		-5:  InTune,
		6:   SlightlyOff,
		-20: SlightlyOff,
		21:  FarOff,
		-50: FarOff,
	}
	for cents, want := range tests {
		assert.Equal(t, want, p.Classify(cents), "%d cents", cents)
	}
}

func TestNeedlePosition(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(50.0, NeedlePosition(0))
	assert.Equal(75.0, NeedlePosition(50))
	assert.Equal(25.0, NeedlePosition(-50))
	assert.Equal(98.0, NeedlePosition(200))
	assert.Equal(2.0, NeedlePosition(-200))
}

func TestNearestString(t *testing.T) {
	match, ok := NearestString(110, StandardTuning)
	require.True(t, ok)
	assert.Equal(t, 2, match.String.Number)
	assert.InDelta(t, 0.0, match.Cents, 1e-9)

	match, ok = NearestString(83, StandardTuning)
	require.True(t, ok)
	assert.Equal(t, "E2", match.String.NoteID)
	assert.InDelta(t, 1200*math.Log2(83/82.41), match.Cents, 1e-9)

	match, ok = NearestString(320, StandardTuning)
	require.True(t, ok)
	assert.Equal(t, 6, match.String.Number)
	assert.Less(t, match.Cents, 0.0)
}

func TestNearestStringInvalid(t *testing.T) {
	for _, freq := range []float64{0, -1, math.NaN()} {
		_, ok := NearestString(freq, StandardTuning)
		assert.False(t, ok)
	}

	_, ok := NearestString(110, nil)
	assert.False(t, ok)
}

func TestStandardTuningMatchesNoteIDs(t *testing.T) {
	for _, s := range StandardTuning {
		freq, err := NoteNameToFreq(s.NoteID)
		require.NoError(t, err)
		assert.InDelta(t, freq, s.Frequency, 0.01, s.NoteID)
	}
}

func TestTuningStateText(t *testing.T) {
	text, err := SlightlyOff.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "slightly_off", string(text))
}
