package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/auth"
)

// Handler serves the assessment API.
type Handler struct {
	svc AssessmentService
}

func NewHandler(svc AssessmentService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Industry) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	userID := auth.UserUID(c)
	a, err := h.svc.Create(c.Request.Context(), userID, domain.CompanyContext{
		Industry:    strings.TrimSpace(req.Industry),
		CompanySize: strings.TrimSpace(req.CompanySize),
		RevenueBand: strings.TrimSpace(req.RevenueBand),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "assessment": a})
}

func (h *Handler) list(c *gin.Context) {
	userID := auth.UserUID(c)
	items, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "assessments": items})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := h.assessmentID(c)
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), auth.UserUID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "assessment": a})
}

func (h *Handler) submitResponses(c *gin.Context) {
	id, ok := h.assessmentID(c)
	if !ok {
		return
	}

	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Responses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	res, err := h.svc.SubmitResponses(c.Request.Context(), auth.UserUID(c), id, req.Responses)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"progress":           res.Progress,
		"questions_answered": res.QuestionsAnswered,
		"total_questions":    res.TotalQuestions,
		"domains":            res.Domains,
	})
}

func (h *Handler) getProgress(c *gin.Context) {
	id, ok := h.assessmentID(c)
	if !ok {
		return
	}

	snap, err := h.svc.Progress(c.Request.Context(), auth.UserUID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "progress": snap})
}

func (h *Handler) getReport(c *gin.Context) {
	id, ok := h.assessmentID(c)
	if !ok {
		return
	}

	report, err := h.svc.Report(c.Request.Context(), auth.UserUID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

func (h *Handler) createCheckout(c *gin.Context) {
	id, ok := h.assessmentID(c)
	if !ok {
		return
	}

	url, err := h.svc.CheckoutURL(c.Request.Context(), auth.UserUID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "checkout_url": url})
}

func (h *Handler) assessmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid assessment id"})
		return uuid.Nil, false
	}
	return id, true
}

// fail maps service errors onto HTTP statuses without leaking internals.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "assessment not found"})
	case errors.Is(err, domain.ErrTerminalStatus):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "assessment can no longer be modified"})
	case errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrUnknownQuestion),
		errors.Is(err, domain.ErrMissingResponse):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
