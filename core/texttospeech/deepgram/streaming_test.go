package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func newSpeakServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token test-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		query := r.URL.Query()
		if query.Get("encoding") != "linear16" || query.Get("sample_rate") != "8000" || query.Get("model") != string(defaultVoice) {
			t.Errorf("unexpected query %v", query)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/speak"
}

func TestSynthesizeCollectsAudioUntilFlushed(t *testing.T) {
	endpoint := newSpeakServer(t, func(conn *websocket.Conn) {
		var speak speakMessage
		if err := conn.ReadJSON(&speak); err != nil || speak.Type != "Speak" || speak.Text != "Hello Jane." {
			t.Errorf("unexpected speak message %+v, %v", speak, err)
			return
		}
		var flush websocketMessage
		if err := conn.ReadJSON(&flush); err != nil || flush.Type != "Flush" {
			t.Errorf("unexpected flush message %+v, %v", flush, err)
			return
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"r1"}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4})
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{5, 6})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed","sequence_id":0}`))

		var closeMsg websocketMessage
		_ = conn.ReadJSON(&closeMsg)
	})

	client, err := NewTextToSpeechClient("test-key", WithEndpoint(endpoint))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	speech, err := client.Synthesize(context.Background(), "Hello Jane.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speech.ContentType != "audio/wav" {
		t.Fatalf("unexpected content type %q", speech.ContentType)
	}
	if len(speech.Audio) != 44+6 || string(speech.Audio[:4]) != "RIFF" {
		t.Fatalf("expected a WAV file with 6 bytes of samples, got %d bytes", len(speech.Audio))
	}
}

func TestSynthesizeReportsProviderError(t *testing.T) {
	endpoint := newSpeakServer(t, func(conn *websocket.Conn) {
		var msg map[string]any
		_ = conn.ReadJSON(&msg)
		_ = conn.ReadJSON(&msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","err_code":"INVALID_INPUT","err_msg":"text too long"}`))
	})

	client, err := NewTextToSpeechClient("test-key", WithEndpoint(endpoint))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Synthesize(context.Background(), "Hello."); err == nil || !strings.Contains(err.Error(), "INVALID_INPUT") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewTextToSpeechClientValidation(t *testing.T) {
	if _, err := NewTextToSpeechClient(""); err == nil {
		t.Fatalf("expected an error without api key")
	}
	if _, err := NewTextToSpeechClient("key", WithVoice("robot")); err == nil {
		t.Fatalf("expected an error for an unknown voice")
	}
	if _, err := ParseVoice("aura-luna-en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
