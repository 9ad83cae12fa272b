package service

import (
	"bytes"
	"testing"
	"time"

	"app/internal/model"
)

func TestRenderTranscriptProducesPDF(t *testing.T) {
	conv := &model.Conversation{
		ID:    "c1",
		Title: "La séparation des pouvoirs",
	}
	created := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	messages := []model.Message{
		{ID: "m1", ConversationID: "c1", Role: "user", Content: "Qu'est-ce que la séparation des pouvoirs ?", CreatedAt: created},
		{ID: "m2", ConversationID: "c1", Role: "assistant", Content: "C'est un principe d'organisation de l'État attribué à Montesquieu…", CreatedAt: created.Add(time.Minute)},
	}

	out, err := renderTranscript(conv, messages)
	if err != nil {
		t.Fatalf("renderTranscript returned error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF, starts with %q", out[:min(8, len(out))])
	}
	if len(out) < 1000 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(out))
	}
}

func TestRenderTranscriptEmptyConversation(t *testing.T) {
	conv := &model.Conversation{ID: "c2", Title: "Vide"}
	out, err := renderTranscript(conv, nil)
	if err != nil {
		t.Fatalf("renderTranscript returned error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output does not look like a PDF")
	}
}
