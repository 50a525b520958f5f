package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyager-api/internal/email"
)

// ContactHandler releva el formulario de contacto al buzon configurado.
type ContactHandler struct {
	logger       *zap.Logger
	emailSender  email.Sender
	contactEmail string
}

// NewContactHandler crea una instancia de ContactHandler con dependencias necesarias.
func NewContactHandler(logger *zap.Logger, emailSender email.Sender, contactEmail string) *ContactHandler {
	return &ContactHandler{
		logger:       logger,
		emailSender:  emailSender,
		contactEmail: contactEmail,
	}
}

// Send maneja POST /api/contact.
func (h *ContactHandler) Send(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required,email"`
		Phone   string `json:"phone"`
		Subject string `json:"subject"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid contact request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	subject := "New Contact Form Submission"
	if req.Subject != "" {
		subject = fmt.Sprintf("Contact Form: %s", req.Subject)
	}

	phone := req.Phone
	if phone == "" {
		phone = "N/A"
	}
	topic := req.Subject
	if topic == "" {
		topic = "N/A"
	}
	body := fmt.Sprintf(`
New contact form submission:

Name: %s
Email: %s
Phone: %s
Subject: %s

Message:
%s
`, req.Name, req.Email, phone, topic, req.Message)

	if err := h.emailSender.Send(c.Request.Context(), h.contactEmail, subject, body); err != nil {
		h.logger.Error("contact email failed",
			zap.Error(err),
			zap.String("reason", string(email.ReasonOf(err))),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully"})
}
