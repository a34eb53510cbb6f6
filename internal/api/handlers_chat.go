package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// inboundMessage is the payload the chat gateway posts for each received
// message.
type inboundMessage struct {
	Sender      string `json:"sender"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}

// chatInbound receives messages forwarded by the chat gateway. Operator
// messages are offered to the approval workflow first; everything else goes
// through the conversation dispatcher. Processing is asynchronous so the
// gateway gets an immediate acknowledgment.
func (s *Server) chatInbound(c echo.Context) error {
	if token := s.cfg.Chat.WebhookToken; token != "" {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if auth != "Bearer "+token {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
	}

	var msg inboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	msg.Sender = strings.TrimSpace(msg.Sender)
	if msg.Sender == "" || strings.TrimSpace(msg.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sender and text are required"})
	}

	// The gateway is the only source that knows display names.
	if s.deps.Contacts != nil && msg.DisplayName != "" {
		if err := s.deps.Contacts.Touch(c.Request().Context(), msg.Sender, msg.DisplayName); err != nil {
			s.logger.Warn().Err(err).Str("sender", msg.Sender).Msg("failed to record contact")
		}
	}

	go s.processInbound(msg)

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// processInbound runs outside the HTTP request lifetime.
func (s *Server) processInbound(msg inboundMessage) {
	ctx := context.Background()

	if operator := s.cfg.Approval.OperatorID; operator != "" && msg.Sender == operator {
		if reply := s.deps.Workflow.HandleOperatorReply(ctx, msg.Text); reply != "" {
			if err := s.deps.Sender.Send(ctx, msg.Sender, reply); err != nil {
				s.logger.Warn().Err(err).Msg("failed to reply to operator")
			}
			return
		}
		// Not an approval command; the operator can hold a normal
		// conversation too.
	}

	s.deps.Dispatcher.Dispatch(ctx, msg.Sender, msg.Text)
}

func (s *Server) listContacts(c echo.Context) error {
	contacts, err := s.deps.Contacts.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, contacts)
}
