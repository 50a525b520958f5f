package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyager-api/internal/llm"
)

const chatSystemPrompt = `You are the Digital Voyager / CyberScope Forensics website assistant.
You help users understand our digital forensics, incident response, cybersecurity consulting,
training services, and how to contact us.

Guidelines:
- Answer only about topics relevant to digital forensics, cybersecurity, incident response,
  our services, contact options, and how we work.
- If a user asks about unrelated topics, politely say it's outside your scope and redirect
  them to our services or contact options.
- Keep answers short, clear, and friendly.
- When helpful, remind users they can use the Contact page, emergency hotline for urgent
  incidents, or request a consultation.`

const chatHistoryLimit = 6

// ChatHandler expone el asistente del sitio sobre un cliente LLM.
type ChatHandler struct {
	logger    *zap.Logger
	llmClient llm.Client
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, llmClient llm.Client) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		llmClient: llmClient,
	}
}

type chatTurn struct {
	User string `json:"user,omitempty"`
	Bot  string `json:"bot,omitempty"`
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message string     `json:"message" binding:"required"`
		History []chatTurn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	prompt := buildChatPrompt(req.Message, req.History)
	reply, err := h.llmClient.Generate(c.Request.Context(), prompt)
	if err != nil {
		h.logger.Error("chat generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// buildChatPrompt concatena el prompt de sistema, las ultimas vueltas de la
// conversacion y la pregunta nueva.
func buildChatPrompt(message string, history []chatTurn) string {
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		switch {
		case turn.User != "":
			lines = append(lines, "User: "+turn.User)
		case turn.Bot != "":
			lines = append(lines, "Assistant: "+turn.Bot)
		}
	}

	return fmt.Sprintf(`%s

Conversation so far:
%s

New user question: %s`, chatSystemPrompt, strings.Join(lines, "\n"), message)
}
