package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-sales/core/llms"
)

func newResponsesServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req requestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Input[0].Role != messageRoleDeveloper || req.Input[1].Content != "hello" {
			t.Errorf("unexpected input %+v", req.Input)
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient("test-key",
		WithURL(server.URL),
		WithHTTPClient(server.Client()),
		WithInstructions("You are a sales assistant."),
	)
}

func TestGenerateReturnsOutputText(t *testing.T) {
	server := newResponsesServer(t, http.StatusOK, `{
		"status": "completed",
		"output": [
			{"type": "reasoning", "id": "rs_1", "summary": []},
			{"type": "message", "id": "msg_1", "content": [
				{"type": "output_text", "text": "Sounds good. "},
				{"type": "output_text", "text": "GOODBYE_HANGUP"}
			]}
		]
	}`)
	defer server.Close()

	text, err := newTestClient(server).Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Sounds good. GOODBYE_HANGUP" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestGenerateBlocked(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "refusal",
			body: `{"status":"completed","output":[{"type":"message","content":[{"type":"refusal","refusal":"I can't help with that."}]}]}`,
		},
		{
			name: "content filter",
			body: `{"status":"incomplete","incomplete_details":{"reason":"content_filter"},"output":[]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newResponsesServer(t, http.StatusOK, tc.body)
			defer server.Close()

			_, err := newTestClient(server).Generate(context.Background(), "hello")
			if !errors.Is(err, llms.ErrContentBlocked) {
				t.Fatalf("expected ErrContentBlocked, got %v", err)
			}
		})
	}
}

func TestGenerateNonOKStatus(t *testing.T) {
	server := newResponsesServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
	defer server.Close()

	_, err := newTestClient(server).Generate(context.Background(), "hello")
	if err == nil || errors.Is(err, llms.ErrContentBlocked) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}
