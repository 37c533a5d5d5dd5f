package deepgram

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-sales/core/audio"
	"github.com/koscakluka/ema-sales/core/texttospeech"
)

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-asteria-en"
	VoiceLuna    deepgramVoice = "aura-luna-en"
	VoiceStella  deepgramVoice = "aura-stella-en"
	VoiceAthena  deepgramVoice = "aura-athena-en"
	VoiceHera    deepgramVoice = "aura-hera-en"
	VoiceOrion   deepgramVoice = "aura-orion-en"
	VoiceArcas   deepgramVoice = "aura-arcas-en"
	VoicePerseus deepgramVoice = "aura-perseus-en"
	VoiceAngus   deepgramVoice = "aura-angus-en"
	VoiceOrpheus deepgramVoice = "aura-orpheus-en"
	VoiceHelios  deepgramVoice = "aura-helios-en"
	VoiceZeus    deepgramVoice = "aura-zeus-en"

	defaultVoice = VoiceOrion
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceHera, VoiceOrion,
		VoiceArcas, VoicePerseus, VoiceAngus, VoiceOrpheus, VoiceHelios, VoiceZeus,
	}
}

// ParseVoice accepts a voice model name, an empty name selects the default.
func ParseVoice(name string) (deepgramVoice, error) {
	if name == "" {
		return defaultVoice, nil
	}
	voice := deepgramVoice(name)
	if !slices.Contains(GetAvailableVoices(), voice) {
		return "", fmt.Errorf("invalid voice %q", name)
	}
	return voice, nil
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

type TextToSpeechClient struct {
	apiKey   string
	voice    deepgramVoice
	endpoint url.URL
	dialer   *websocket.Dialer
	options  texttospeech.TextToSpeechOptions
}

type ClientOption func(*TextToSpeechClient)

func WithVoice(voice deepgramVoice) ClientOption {
	return func(c *TextToSpeechClient) {
		c.voice = voice
	}
}

// WithEndpoint overrides the websocket speak endpoint, e.g.
// "wss://api.deepgram.com/v1/speak".
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TextToSpeechClient) {
		if parsed, err := url.Parse(endpoint); err == nil {
			c.endpoint = *parsed
		}
	}
}

func WithTextToSpeechOptions(opts ...texttospeech.TextToSpeechOption) ClientOption {
	return func(c *TextToSpeechClient) {
		for _, opt := range opts {
			opt(&c.options)
		}
	}
}

func NewTextToSpeechClient(apiKey string, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	client := &TextToSpeechClient{
		apiKey:   apiKey,
		voice:    defaultVoice,
		endpoint: url.URL{Scheme: "wss", Host: "api.deepgram.com", Path: "/v1/speak"},
		dialer:   websocket.DefaultDialer,
		options:  texttospeech.TextToSpeechOptions{EncodingInfo: audio.GetDefaultEncodingInfo()},
	}
	for _, opt := range opts {
		opt(client)
	}

	if !slices.Contains(GetAvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}
