package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-sales/core/audio"
	"github.com/koscakluka/ema-sales/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type serverMessage struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	ErrCode     string `json:"err_code,omitempty"`
	ErrMsg      string `json:"err_msg,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

// Synthesize speaks text over a single websocket session and returns the
// audio as a WAV file.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) (texttospeech.Speech, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.voice", string(c.voice)),
		attribute.Int("tts.characters", len(text)),
	)

	samples, err := c.speak(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return texttospeech.Speech{}, err
	}

	wav, err := audio.WAV(samples, c.options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return texttospeech.Speech{}, fmt.Errorf("failed to package audio: %w", err)
	}

	span.SetAttributes(attribute.Int("tts.bytes", len(wav)))
	return texttospeech.Speech{Audio: wav, ContentType: "audio/wav"}, nil
}

func (c *TextToSpeechClient) speak(ctx context.Context, text string) ([]byte, error) {
	conn, err := c.connectWebsocket(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()

	// Unblocks ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return nil, fmt.Errorf("failed to send text to deepgram through websocket: %w", err)
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return nil, fmt.Errorf("failed to flush deepgram buffer through websocket: %w", err)
	}

	var samples bytes.Buffer
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("websocket read error: %w", err)
		}

		if msgType == websocket.BinaryMessage {
			samples.Write(msg)
			continue
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var parsedMsg serverMessage
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			logger.WarnContext(ctx, "failed to unmarshal deepgram message", slog.Any("error", err))
			continue
		}

		switch parsedMsg.Type {
		case "Flushed":
			if err := conn.WriteJSON(closeMsg); err != nil {
				logger.DebugContext(ctx, "failed to send close message to deepgram websocket", slog.Any("error", err))
			}
			if samples.Len() == 0 {
				return nil, errors.New("deepgram returned no audio")
			}
			return samples.Bytes(), nil
		case "Warning":
			logger.WarnContext(ctx, "deepgram warning", slog.String("description", parsedMsg.Description))
		case "Error":
			return nil, fmt.Errorf("deepgram error %s: %s", parsedMsg.ErrCode, parsedMsg.ErrMsg)
		}
	}
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context) (*websocket.Conn, error) {
	urlValues := url.Values{}
	urlValues.Set("encoding", c.options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(c.options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")

	endpoint := c.endpoint
	endpoint.RawQuery = urlValues.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection to deepgram: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
