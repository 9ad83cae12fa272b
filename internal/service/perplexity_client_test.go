package service

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompleteReturnsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("Complete must not request streaming")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"content":"La laïcité est un principe constitutionnel."}}]}`)
	}))
	defer srv.Close()

	client := NewPerplexityClient(srv.URL, "test-key", "sonar", zerolog.Nop())
	got, err := client.Complete(context.Background(), []ChatTurn{{Role: "user", Content: "Qu'est-ce que la laïcité ?"}})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "La laïcité est un principe constitutionnel." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_api_key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewPerplexityClient(srv.URL, "bad-key", "sonar", zerolog.Nop())
	if _, err := client.Complete(context.Background(), []ChatTurn{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestStreamChatDeliversSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Bonjour\"},\"finish_reason\":\"\"}]}\n\n")
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" !\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewPerplexityClient(srv.URL, "test-key", "sonar", zerolog.Nop())
	stream, err := client.StreamChat(context.Background(), []ChatTurn{{Role: "user", Content: "salut"}})
	if err != nil {
		t.Fatalf("StreamChat returned error: %v", err)
	}
	defer stream.Close()

	reader := bufio.NewReader(stream)
	var sb strings.Builder
	for {
		chunk, err := ParseStreamChunk(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ParseStreamChunk returned error: %v", err)
		}
		sb.WriteString(chunk.Content)
		if chunk.Done {
			break
		}
	}
	if sb.String() != "Bonjour !" {
		t.Fatalf("unexpected streamed content: %q", sb.String())
	}
}

func TestParseStreamChunkDoneSentinel(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("data: [DONE]\n\n"))
	chunk, err := ParseStreamChunk(reader)
	if err != nil {
		t.Fatalf("ParseStreamChunk returned error: %v", err)
	}
	if !chunk.Done {
		t.Fatal("expected Done for [DONE] sentinel")
	}
}
