package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/examapi"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
	"github.com/stemsi/exstem-session/internal/validator"
)

// SessionHandler exposes the exam session to the local exam UI.
type SessionHandler struct {
	session *service.ExamSession
	log     zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session *service.ExamSession, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		log:     log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/session/start
// Loads the exam and resumes the saved session for it, or starts a fresh one.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.session.Start(c.Request.Context(), req.TestID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// GetSession godoc
// GET /api/v1/session
// Returns the current question, all question states, progress and remaining time.
// Used by the UI after a page reload.
func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.session.Snapshot()
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// GetCatalog godoc
// GET /api/v1/session/catalog
// Returns all sections and questions of the started exam.
func (h *SessionHandler) GetCatalog(c *gin.Context) {
	catalog, err := h.session.Catalog()
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"catalog": catalog})
}

// GetSummary godoc
// GET /api/v1/session/summary
// Returns per-status counts, shown before the test-taker confirms submission.
func (h *SessionHandler) GetSummary(c *gin.Context) {
	summary, err := h.session.Summary()
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// Next godoc
// POST /api/v1/session/navigate/next
func (h *SessionHandler) Next(c *gin.Context) {
	if _, err := h.session.Next(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respondSnapshot(c, true)
}

// Previous godoc
// POST /api/v1/session/navigate/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	if _, err := h.session.Previous(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respondSnapshot(c, true)
}

// GoToQuestion godoc
// POST /api/v1/session/navigate/goto
// A target outside the exam leaves the position unchanged and reports moved=false.
func (h *SessionHandler) GoToQuestion(c *gin.Context) {
	var req model.GoToQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	_, moved, err := h.session.GoTo(c.Request.Context(), req.SectionID, req.QuestionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondSnapshot(c, moved)
}

// GoToSection godoc
// POST /api/v1/session/navigate/section
func (h *SessionHandler) GoToSection(c *gin.Context) {
	var req model.GoToSectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	_, moved, err := h.session.GoToSection(c.Request.Context(), req.SectionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondSnapshot(c, moved)
}

// Answer godoc
// POST /api/v1/session/answer
func (h *SessionHandler) Answer(c *gin.Context) {
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	st, err := h.session.Answer(c.Request.Context(), req.QuestionID, req.Option)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, st)
}

// ToggleReview godoc
// POST /api/v1/session/review/toggle
func (h *SessionHandler) ToggleReview(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	st, err := h.session.ToggleReview(c.Request.Context(), req.QuestionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, st)
}

// ClearResponse godoc
// POST /api/v1/session/answer/clear
func (h *SessionHandler) ClearResponse(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	st, err := h.session.ClearResponse(c.Request.Context(), req.QuestionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c, st)
}

// Submit godoc
// POST /api/v1/session/submit
// Sends the answers. Saved progress is kept when submission fails.
func (h *SessionHandler) Submit(c *gin.Context) {
	result, err := h.session.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Reset godoc
// POST /api/v1/session/reset
// Stops the clock and discards the saved session (logout).
func (h *SessionHandler) Reset(c *gin.Context) {
	if err := h.session.Reset(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Session reset"})
}

func (h *SessionHandler) respondSnapshot(c *gin.Context, moved bool) {
	snap, err := h.session.Snapshot()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"moved": moved, "session": snap})
}

func (h *SessionHandler) respondState(c *gin.Context, st model.QuestionState) {
	summary, err := h.session.Summary()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": st, "summary": summary})
}

// fail maps session and exam service errors onto API error codes.
func (h *SessionHandler) fail(c *gin.Context, err error) {
	var apiErr *examapi.APIError
	upstream := ""
	if errors.As(err, &apiErr) {
		upstream = apiErr.Message
	}

	switch {
	case errors.Is(err, service.ErrSessionNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	case errors.Is(err, service.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrSubmissionInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmissionInProgress)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, service.ErrInvalidOption):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidOption)
	case errors.Is(err, service.ErrEmptyAnswers):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyAnswers)
	case service.IsValidation(err):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)

	case errors.Is(err, examapi.ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, response.ErrExamUnauthorized)
	case errors.Is(err, service.ErrCatalogLoad) && errors.Is(err, examapi.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, service.ErrCatalogLoad):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrCatalogLoad, upstream)
	case errors.Is(err, service.ErrSubmissionTransport) && errors.Is(err, examapi.ErrValidation):
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrValidation, upstream)
	case errors.Is(err, service.ErrSubmissionTransport):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmissionFailed)

	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Session request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
