package tts

import "context"

// DefaultVoice is used when the requested voice is absent or unknown.
const DefaultVoice = "alloy"

// MaxInputRunes is the provider-imposed input ceiling; longer text is
// truncated, not rejected.
const MaxInputRunes = 4096

// Voices is the fixed set of selectable voices.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var voiceSet = func() map[string]bool {
	m := make(map[string]bool, len(Voices))
	for _, v := range Voices {
		m[v] = true
	}
	return m
}()

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Input string `json:"input"`
	Voice string `json:"voice,omitempty"`
}

// SynthesisResult holds the generated audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
	Voice       string
}

// Provider is the interface for text-to-speech backends.
type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}

// NormalizeVoice maps unknown voice names to the default instead of failing.
func NormalizeVoice(voice string) string {
	if voiceSet[voice] {
		return voice
	}
	return DefaultVoice
}

// Truncate enforces the provider input ceiling.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxInputRunes {
		return text
	}
	return string(runes[:MaxInputRunes])
}
