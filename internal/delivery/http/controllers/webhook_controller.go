package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"homieplanner/internal/delivery/http/helpers"
	"homieplanner/internal/domain"
)

// InboundSMSRequest is the request body for POST /webhook/sms, as posted
// by the SMS gateway.
type InboundSMSRequest struct {
	DeliveryID string `json:"delivery_id"`
	From       string `json:"from"`
	Body       string `json:"body"`
}

// Validate implements Validator.
func (i InboundSMSRequest) Validate() []string {
	var errs []string
	if i.DeliveryID == "" {
		errs = append(errs, "delivery_id is required")
	}
	if i.From == "" {
		errs = append(errs, "from is required")
	}
	return errs
}

// InboundSMSResponse is the data payload for POST /webhook/sms (200).
type InboundSMSResponse struct {
	Status string `json:"status"`
}

// WebhookController receives gateway callbacks and routes each inbound
// message by sender role: a homie with an active invite goes to the
// coordinator, an event creator goes to the draft machine.
type WebhookController struct {
	Logger        *slog.Logger
	Members       domain.EventMemberRepository
	Conversations domain.ConversationRepository
	Coordinator   domain.Coordinator
	Drafts        domain.DraftService
}

func NewWebhookController(
	logger *slog.Logger,
	members domain.EventMemberRepository,
	conversations domain.ConversationRepository,
	coordinator domain.Coordinator,
	drafts domain.DraftService,
) *WebhookController {
	return &WebhookController{
		Logger:        logger,
		Members:       members,
		Conversations: conversations,
		Coordinator:   coordinator,
		Drafts:        drafts,
	}
}

// HandleInboundSMS godoc
// @Summary Receive an inbound SMS from the gateway
// @Description Gateway callback for inbound messages. Requires the shared X-Webhook-Token header. Redeliveries with a known delivery_id are acknowledged without effect. Messages from numbers with neither an active invite nor a conversation are acknowledged and ignored.
// @Tags webhook
// @Accept json
// @Produce json
// @Param message body InboundSMSRequest true "Inbound message"
// @Success 200 {object} helpers.APIResponse "data contains status: handled or ignored"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /webhook/sms [post]
func (c *WebhookController) HandleInboundSMS(w http.ResponseWriter, r *http.Request) {
	var req InboundSMSRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	// Invitee replies take precedence: an active invite binds the number
	// to one event.
	member, err := c.Members.FindActiveInviteByPhone(r.Context(), req.From)
	if err == nil {
		if err := c.Coordinator.OnMemberInboundMessage(r.Context(), member.EventID, member.HomieID, req.DeliveryID, req.Body); err != nil {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, InboundSMSResponse{Status: "handled"})
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	conv, err := c.Conversations.GetByPhone(r.Context(), req.From)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown sender. Acknowledge so the gateway stops retrying.
			c.Logger.InfoContext(r.Context(), "inbound from unknown number ignored", "delivery_id", req.DeliveryID)
			helpers.WriteJSONSuccess(w, http.StatusOK, InboundSMSResponse{Status: "ignored"})
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	if err := c.Drafts.OnCreatorInboundMessage(r.Context(), conv, req.DeliveryID, req.Body); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, InboundSMSResponse{Status: "handled"})
}
