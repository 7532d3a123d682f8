package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVoice(t *testing.T) {
	for _, v := range Voices {
		assert.Equal(t, v, NormalizeVoice(v))
	}

	assert.Equal(t, DefaultVoice, NormalizeVoice(""))
	assert.Equal(t, DefaultVoice, NormalizeVoice("robot"))
	assert.Equal(t, DefaultVoice, NormalizeVoice("ALLOY"))
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Truncate(short))

	exact := strings.Repeat("a", MaxInputRunes)
	assert.Equal(t, exact, Truncate(exact))

	long := strings.Repeat("b", MaxInputRunes+100)
	assert.Len(t, []rune(Truncate(long)), MaxInputRunes)
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", MaxInputRunes+10)
	truncated := Truncate(long)
	assert.Len(t, []rune(truncated), MaxInputRunes)
	assert.True(t, strings.HasPrefix(long, truncated))
}
