package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"homieplanner/internal/delivery/http/helpers"
	"homieplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMemberRepo answers FindActiveInviteByPhone; other repository
// methods are not reached by the controller.
type stubMemberRepo struct {
	domain.EventMemberRepository
	member *domain.EventMember
	err    error
}

func (s *stubMemberRepo) FindActiveInviteByPhone(ctx context.Context, phone string) (*domain.EventMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.member, nil
}

type stubConvRepo struct {
	domain.ConversationRepository
	conv *domain.Conversation
	err  error
}

func (s *stubConvRepo) GetByPhone(ctx context.Context, phone string) (*domain.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.conv, nil
}

type recordingCoordinator struct {
	eventID, homieID, deliveryID, text string
	called                             bool
	err                                error
}

func (r *recordingCoordinator) OnEventCreated(ctx context.Context, eventID string) error { return nil }
func (r *recordingCoordinator) MaybeInviteMore(ctx context.Context, eventID string) error {
	return nil
}

func (r *recordingCoordinator) OnMemberInboundMessage(ctx context.Context, eventID, homieID, deliveryID, text string) error {
	r.called = true
	r.eventID, r.homieID, r.deliveryID, r.text = eventID, homieID, deliveryID, text
	return r.err
}

type recordingDraftService struct {
	called     bool
	deliveryID string
	err        error
}

func (r *recordingDraftService) StartDraft(ctx context.Context, conv *domain.Conversation, details domain.DraftDetails) error {
	return nil
}

func (r *recordingDraftService) OnCreatorInboundMessage(ctx context.Context, conv *domain.Conversation, deliveryID, text string) error {
	r.called = true
	r.deliveryID = deliveryID
	return r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func postSMS(t *testing.T, controller *WebhookController, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://test/webhook/sms", strings.NewReader(body))
	rr := httptest.NewRecorder()
	controller.HandleInboundSMS(rr, req)
	return rr
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Data  InboundSMSResponse `json:"data"`
		Error *helpers.APIError  `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	return envelope.Data.Status
}

func TestHandleInboundSMS_RoutesActiveInviteToCoordinator(t *testing.T) {
	coord := &recordingCoordinator{}
	drafts := &recordingDraftService{}
	controller := NewWebhookController(testLogger(),
		&stubMemberRepo{member: &domain.EventMember{EventID: "ev-1", HomieID: "h-1"}},
		&stubConvRepo{err: domain.ErrNotFound},
		coord, drafts)

	rr := postSMS(t, controller, `{"delivery_id":"d-1","from":"+15551234567","body":"yes!"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "handled", decodeStatus(t, rr))
	require.True(t, coord.called)
	assert.Equal(t, "ev-1", coord.eventID)
	assert.Equal(t, "h-1", coord.homieID)
	assert.Equal(t, "d-1", coord.deliveryID)
	assert.Equal(t, "yes!", coord.text)
	assert.False(t, drafts.called)
}

func TestHandleInboundSMS_RoutesCreatorToDraftMachine(t *testing.T) {
	coord := &recordingCoordinator{}
	drafts := &recordingDraftService{}
	controller := NewWebhookController(testLogger(),
		&stubMemberRepo{err: domain.ErrNotFound},
		&stubConvRepo{conv: &domain.Conversation{ID: "conv-1", Phone: "+15551234567"}},
		coord, drafts)

	rr := postSMS(t, controller, `{"delivery_id":"d-2","from":"+15551234567","body":"lock it in"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "handled", decodeStatus(t, rr))
	assert.False(t, coord.called)
	require.True(t, drafts.called)
	assert.Equal(t, "d-2", drafts.deliveryID)
}

func TestHandleInboundSMS_UnknownSenderIsIgnored(t *testing.T) {
	coord := &recordingCoordinator{}
	drafts := &recordingDraftService{}
	controller := NewWebhookController(testLogger(),
		&stubMemberRepo{err: domain.ErrNotFound},
		&stubConvRepo{err: domain.ErrNotFound},
		coord, drafts)

	rr := postSMS(t, controller, `{"delivery_id":"d-3","from":"+19999999999","body":"hello?"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ignored", decodeStatus(t, rr))
	assert.False(t, coord.called)
	assert.False(t, drafts.called)
}

func TestHandleInboundSMS_MissingFields(t *testing.T) {
	controller := NewWebhookController(testLogger(),
		&stubMemberRepo{err: domain.ErrNotFound},
		&stubConvRepo{err: domain.ErrNotFound},
		&recordingCoordinator{}, &recordingDraftService{})

	rr := postSMS(t, controller, `{"body":"no ids"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleInboundSMS_CoordinatorErrorIs500(t *testing.T) {
	coord := &recordingCoordinator{err: errors.New("db down")}
	controller := NewWebhookController(testLogger(),
		&stubMemberRepo{member: &domain.EventMember{EventID: "ev-1", HomieID: "h-1"}},
		&stubConvRepo{err: domain.ErrNotFound},
		coord, &recordingDraftService{})

	rr := postSMS(t, controller, `{"delivery_id":"d-4","from":"+15551234567","body":"yes"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
