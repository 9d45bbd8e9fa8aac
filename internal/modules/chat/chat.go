package chat

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/pkg/response"
	"github.com/smarttraffic/core/internal/provider"
)

const (
	fallbackReply = "Service unavailable."
	emptyReply    = "I'm processing that..."

	systemPrompt = "You are the marketplace assistant. Help owners and generators with campaigns, ratings and rewards. Be concise."
)

// Responder is the text-generation slice of the provider client.
type Responder interface {
	GenerateText(ctx context.Context, purpose provider.Purpose, systemPrompt, prompt string, maxTokens int, opts ...provider.GenerateOption) (string, error)
}

// Message is one prior turn of the conversation, supplied by the caller.
type Message struct {
	Role string `json:"role" binding:"required,oneof=user assistant"`
	Text string `json:"text" binding:"required"`
}

type SendDTO struct {
	History []Message `json:"history" binding:"dive"`
	Message string    `json:"message" binding:"required"`
}

// Service relays assistant conversations. The client owns the history;
// provider failures degrade to a canned reply, never an error.
type Service struct {
	ai  Responder
	log *zap.Logger
}

func NewService(ai Responder, log *zap.Logger) *Service {
	return &Service{ai: ai, log: log}
}

// Send answers one user message given the prior conversation.
func (s *Service) Send(ctx context.Context, history []Message, message string) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	b.WriteString("USER: ")
	b.WriteString(message)

	reply, err := s.ai.GenerateText(ctx, provider.PurposeChat, systemPrompt, b.String(), 1024)
	if err != nil {
		s.log.Warn("chat generation failed", zap.Error(err))
		return fallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		return emptyReply
	}
	return reply
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/chat", authMW, h.send)
}

func (h *Handler) send(c *gin.Context) {
	var dto SendDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply := h.svc.Send(c.Request.Context(), dto.History, dto.Message)
	response.OK(c, gin.H{"reply": reply})
}
