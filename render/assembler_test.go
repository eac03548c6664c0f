package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveDuration(t *testing.T) {
	// no narration: requested stands
	assert.Equal(t, 5.0, EffectiveDuration(5.0, 0, 0.5))

	// narration shorter than requested: requested still stands
	assert.Equal(t, 5.0, EffectiveDuration(5.0, 3.0, 0.5))

	// narration longer: extended to audio plus pad
	assert.Equal(t, 7.5, EffectiveDuration(5.0, 7.0, 0.5))

	// boundary: audio+pad exactly equal keeps requested
	assert.Equal(t, 5.0, EffectiveDuration(5.0, 4.5, 0.5))
}

func TestEffectiveDurationNeverShrinks(t *testing.T) {
	for _, audio := range []float64{0, 0.1, 2, 4.9, 5, 10} {
		eff := EffectiveDuration(5.0, audio, 0.5)
		assert.GreaterOrEqual(t, eff, 5.0, "audio=%v", audio)
		if audio > 0 {
			assert.GreaterOrEqual(t, eff, audio+0.5, "audio=%v", audio)
		}
	}
}
