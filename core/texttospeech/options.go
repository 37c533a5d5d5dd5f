package texttospeech

import (
	"context"

	"github.com/koscakluka/ema-sales/core/audio"
)

type TextToSpeechOptions struct {
	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

// Speech is a synthesized utterance.
type Speech struct {
	// Audio is a complete, playable file.
	Audio       []byte
	ContentType string
}

// Synthesizer turns a line of text into speech in a single round trip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}
