package stt

import (
	"context"

	"github.com/shoptalk/shoptalk/internal/fault"
)

// MaxAudioSize caps STT uploads at 25 MB.
const MaxAudioSize = 25 * 1024 * 1024

var supportedTypes = map[string]bool{
	"audio/wav":  true,
	"audio/mp3":  true,
	"audio/mpeg": true,
	"audio/m4a":  true,
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/flac": true,
	"audio/aac":  true,
}

// TranscriptionRequest carries raw audio bytes and their declared MIME type.
type TranscriptionRequest struct {
	Audio       []byte
	ContentType string
	Language    string
}

type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}

// Validate rejects bad audio input before any transcription attempt.
func Validate(contentType string, audio []byte) error {
	if !supportedTypes[contentType] {
		return fault.New(fault.UnsupportedFormat, "unsupported audio format %q", contentType)
	}
	if len(audio) == 0 {
		return fault.New(fault.UnsupportedFormat, "empty audio payload")
	}
	if len(audio) > MaxAudioSize {
		return fault.New(fault.PayloadTooLarge, "audio payload exceeds %d bytes", MaxAudioSize)
	}
	return nil
}
