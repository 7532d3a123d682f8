package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/fault"
)

func TestValidateAcceptsSupportedFormats(t *testing.T) {
	audio := []byte("fake audio bytes")
	for _, ct := range []string{"audio/wav", "audio/mp3", "audio/mpeg", "audio/m4a", "audio/webm", "audio/ogg", "audio/flac", "audio/aac"} {
		assert.NoError(t, Validate(ct, audio), ct)
	}
}

func TestValidateRejectsUnsupportedFormat(t *testing.T) {
	err := Validate("video/mp4", []byte("data"))
	require.Error(t, err)
	assert.Equal(t, fault.UnsupportedFormat, fault.KindOf(err))
}

func TestValidateRejectsEmptyPayload(t *testing.T) {
	err := Validate("audio/wav", nil)
	require.Error(t, err)
	assert.Equal(t, fault.UnsupportedFormat, fault.KindOf(err))
}

func TestValidateRejectsOversizedPayload(t *testing.T) {
	err := Validate("audio/wav", make([]byte, MaxAudioSize+1))
	require.Error(t, err)
	assert.Equal(t, fault.PayloadTooLarge, fault.KindOf(err))
}

func TestValidateAcceptsExactLimit(t *testing.T) {
	assert.NoError(t, Validate("audio/wav", make([]byte, MaxAudioSize)))
}
