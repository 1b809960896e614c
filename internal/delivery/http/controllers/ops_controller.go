package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"homieplanner/internal/delivery/http/helpers"
	"homieplanner/internal/delivery/http/middleware"
	"homieplanner/internal/domain"
)

// phoneRegex matches E.164 numbers: a plus sign and 8 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// OpsController serves the authenticated ops API: event rosters and the
// caller's homie contacts.
type OpsController struct {
	Logger  *slog.Logger
	Events  domain.EventRepository
	Members domain.EventMemberRepository
	Homies  domain.HomieRepository
}

func NewOpsController(
	logger *slog.Logger,
	events domain.EventRepository,
	members domain.EventMemberRepository,
	homies domain.HomieRepository,
) *OpsController {
	return &OpsController{
		Logger:  logger,
		Events:  events,
		Members: members,
		Homies:  homies,
	}
}

// RosterResponse is the data payload for GET /events/{eventID}/roster (200).
type RosterResponse struct {
	Event    *domain.Event         `json:"event"`
	Members  []*domain.EventMember `json:"members"`
	Accepted int                   `json:"accepted"`
	Invited  int                   `json:"invited"`
	Listed   int                   `json:"listed"`
	Declined int                   `json:"declined"`
}

// RosterSuccessResponse is the success response envelope for GET /events/{eventID}/roster (200).
type RosterSuccessResponse struct {
	Data  RosterResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetRoster godoc
// @Summary Get the invite roster for an event
// @Description Returns the event, its member rows, and status counts. Only the event creator can view. Requires authentication.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RosterSuccessResponse "data contains event, members, and counts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not creator)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/roster [get]
func (c *OpsController) GetRoster(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Events.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if event.CreatorID != userID {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		return
	}
	members, err := c.Members.ListByEventID(r.Context(), eventID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if members == nil {
		members = []*domain.EventMember{}
	}
	counts, err := c.Members.CountByStatus(r.Context(), eventID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RosterResponse{
		Event:    event,
		Members:  members,
		Accepted: counts.Accepted,
		Invited:  counts.Invited,
		Listed:   counts.Listed,
		Declined: counts.Declined,
	})
}

// CreateHomieRequest is the request body for POST /homies.
type CreateHomieRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Validate implements Validator.
func (c CreateHomieRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Phone == "" {
		errs = append(errs, "phone is required")
	} else if !phoneRegex.MatchString(c.Phone) {
		errs = append(errs, "phone must be E.164, like +15551234567")
	}
	return errs
}

// CreateHomieSuccessResponse is the success response envelope for POST /homies (201).
type CreateHomieSuccessResponse struct {
	Data  *domain.Homie     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreateHomie godoc
// @Summary Add a homie contact
// @Description Adds a homie to the authenticated user's contact list. Phone must be E.164. Requires authentication.
// @Tags homies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param homie body CreateHomieRequest true "Homie data"
// @Success 201 {object} controllers.CreateHomieSuccessResponse "data contains the created homie"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /homies [post]
func (c *OpsController) CreateHomie(w http.ResponseWriter, r *http.Request) {
	var req CreateHomieRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	now := time.Now()
	homie := &domain.Homie{
		OwnerID:   userID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Homies.Create(r.Context(), homie); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, homie)
}

// ListHomiesSuccessResponse is the success response envelope for GET /homies (200).
type ListHomiesSuccessResponse struct {
	Data  []*domain.Homie   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListHomies godoc
// @Summary List the caller's homies
// @Description Returns the authenticated user's homie contacts, ordered by name. Requires authentication.
// @Tags homies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListHomiesSuccessResponse "data is an array of homies"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /homies [get]
func (c *OpsController) ListHomies(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	homies, err := c.Homies.ListByOwnerID(r.Context(), userID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if homies == nil {
		homies = []*domain.Homie{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, homies)
}
