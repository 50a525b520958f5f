package http

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyager-api/internal/llm"
)

func setupChatRouter(client llm.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewChatHandler(zap.NewNop(), client)
	r.POST("/api/chat", h.Chat)
	return r
}

func TestChatHandlerReply(t *testing.T) {
	mock := &llm.MockClient{Response: "We handle incident response."}
	r := setupChatRouter(mock)

	rec := performRequest(r, http.MethodPost, "/api/chat", map[string]any{
		"message": "What services do you offer?",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "incident response") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(mock.Prompts) != 1 || !strings.Contains(mock.Prompts[0], "What services do you offer?") {
		t.Fatalf("expected prompt to carry the user question, got %v", mock.Prompts)
	}
}

func TestChatHandlerMissingMessage(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{Response: "hi"})

	rec := performRequest(r, http.MethodPost, "/api/chat", map[string]any{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatHandlerUpstreamFailure(t *testing.T) {
	r := setupChatRouter(&llm.MockClient{Err: errors.New("model unavailable")})

	rec := performRequest(r, http.MethodPost, "/api/chat", map[string]any{
		"message": "hello",
	}, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBuildChatPromptTrimsHistory(t *testing.T) {
	history := make([]chatTurn, 0, 10)
	for i := 0; i < 5; i++ {
		history = append(history, chatTurn{User: "old question"})
		history = append(history, chatTurn{Bot: "old answer"})
	}
	history[0].User = "dropped question"

	prompt := buildChatPrompt("new question", history)
	if strings.Contains(prompt, "dropped question") {
		t.Fatalf("expected history trimmed to last turns")
	}
	if !strings.Contains(prompt, "New user question: new question") {
		t.Fatalf("expected new question appended")
	}
	if !strings.Contains(prompt, "Digital Voyager") {
		t.Fatalf("expected system prompt present")
	}
}

func TestBuildChatPromptSkipsEmptyTurns(t *testing.T) {
	prompt := buildChatPrompt("q", []chatTurn{{}, {User: "hi"}, {Bot: "hello"}})
	if !strings.Contains(prompt, "User: hi") || !strings.Contains(prompt, "Assistant: hello") {
		t.Fatalf("expected both roles in prompt:\n%s", prompt)
	}
}
