package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type fakeChatRepo struct {
	convs    map[string]*model.Conversation
	messages map[string][]model.Message
	nextID   int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		convs:    make(map[string]*model.Conversation),
		messages: make(map[string][]model.Message),
	}
}

func (f *fakeChatRepo) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	f.nextID++
	conv := &model.Conversation{ID: fmt.Sprintf("c%d", f.nextID), UserID: userID, Title: title}
	f.convs[conv.ID] = conv
	return conv, nil
}

func (f *fakeChatRepo) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, ok := f.convs[conversationID]
	if !ok || conv.UserID != userID {
		return nil, repository.ErrConversationNotFound
	}
	return conv, nil
}

func (f *fakeChatRepo) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, conv := range f.convs {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) UpdateConversationTitle(ctx context.Context, conversationID, userID, title string) (*model.Conversation, error) {
	conv, err := f.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	conv.Title = title
	return conv, nil
}

func (f *fakeChatRepo) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if _, err := f.GetConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	delete(f.convs, conversationID)
	delete(f.messages, conversationID)
	return nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error) {
	f.nextID++
	msg := model.Message{ID: fmt.Sprintf("m%d", f.nextID), ConversationID: conversationID, Role: role, Content: content}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	return &msg, nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]model.Message, error) {
	if _, err := f.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs := f.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeChatRepo) CountMessages(ctx context.Context, conversationID, userID string) (int, error) {
	if _, err := f.GetConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return len(f.messages[conversationID]), nil
}

type fakeLLM struct {
	turns []ChatTurn
}

func (f *fakeLLM) StreamChat(ctx context.Context, turns []ChatTurn) (io.ReadCloser, error) {
	f.turns = turns
	return io.NopCloser(strings.NewReader("data: [DONE]\n\n")), nil
}

func (f *fakeLLM) Complete(ctx context.Context, turns []ChatTurn) (string, error) {
	return "Titre", nil
}

func countTurns(turns []ChatTurn, role, content string) int {
	n := 0
	for _, turn := range turns {
		if turn.Role == role && turn.Content == content {
			n++
		}
	}
	return n
}

// The user message is persisted before streaming starts; the history
// replay is the only path by which it reaches the model.
func TestStreamResponseSendsUserTurnOnce(t *testing.T) {
	repo := newFakeChatRepo()
	llm := &fakeLLM{}
	svc := NewChatService(repo, llm, zerolog.Nop())
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, "u1", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := svc.CreateMessage(ctx, conv.ID, "u1", "user", "Bonjour"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	stream, err := svc.StreamResponse(ctx, conv.ID, "u1")
	if err != nil {
		t.Fatalf("StreamResponse: %v", err)
	}
	stream.Close()

	if got := countTurns(llm.turns, "user", "Bonjour"); got != 1 {
		t.Fatalf("user turn sent to the model %d times, want 1; turns: %v", got, llm.turns)
	}
	if llm.turns[0].Role != "system" {
		t.Fatalf("first turn role = %q, want system", llm.turns[0].Role)
	}
	last := llm.turns[len(llm.turns)-1]
	if last.Role != "user" || last.Content != "Bonjour" {
		t.Fatalf("last turn = %+v, want the latest user message", last)
	}
}

func TestStreamResponseReplaysFullExchange(t *testing.T) {
	repo := newFakeChatRepo()
	llm := &fakeLLM{}
	svc := NewChatService(repo, llm, zerolog.Nop())
	ctx := context.Background()

	conv, _ := svc.CreateConversation(ctx, "u1", "")
	svc.CreateMessage(ctx, conv.ID, "u1", "user", "Bonjour")
	svc.CreateMessage(ctx, conv.ID, "u1", "assistant", "Bonjour ! Comment puis-je aider ?")
	svc.CreateMessage(ctx, conv.ID, "u1", "user", "Parle-moi du Sénat")

	stream, err := svc.StreamResponse(ctx, conv.ID, "u1")
	if err != nil {
		t.Fatalf("StreamResponse: %v", err)
	}
	stream.Close()

	// system + the three stored messages, each exactly once.
	if len(llm.turns) != 4 {
		t.Fatalf("model received %d turns, want 4: %v", len(llm.turns), llm.turns)
	}
	if got := countTurns(llm.turns, "user", "Parle-moi du Sénat"); got != 1 {
		t.Fatalf("latest user turn sent %d times, want 1", got)
	}
	if got := countTurns(llm.turns, "assistant", "Bonjour ! Comment puis-je aider ?"); got != 1 {
		t.Fatalf("assistant turn sent %d times, want 1", got)
	}
}

func TestStreamResponseUnknownConversation(t *testing.T) {
	svc := NewChatService(newFakeChatRepo(), &fakeLLM{}, zerolog.Nop())

	if _, err := svc.StreamResponse(context.Background(), "missing", "u1"); err != ErrConversationNotFound {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}
