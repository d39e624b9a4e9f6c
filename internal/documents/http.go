package documents

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/auth"
)

// maxDocumentSize caps declared upload sizes at 25 MiB.
const maxDocumentSize = 25 << 20

// Owners verifies assessment ownership before any document operation.
type Owners interface {
	Get(ctx context.Context, id uuid.UUID, ownerUID string) (*domain.Assessment, error)
}

// Handler serves document metadata and upload-link endpoints.
type Handler struct {
	repo      *Repo
	presigner *Presigner
	owners    Owners
}

func NewHandler(repo *Repo, presigner *Presigner, owners Owners) *Handler {
	return &Handler{repo: repo, presigner: presigner, owners: owners}
}

type uploadReq struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

func (h *Handler) createUpload(c *gin.Context) {
	assessmentID, ok := h.ownedAssessment(c)
	if !ok {
		return
	}

	var req uploadReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FileName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Size <= 0 || req.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid file size"})
		return
	}
	if h.presigner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "document uploads are not configured"})
		return
	}

	url, key, err := h.presigner.UploadURL(c.Request.Context(), assessmentID, req.FileName, req.FileType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not create upload url"})
		return
	}

	doc, err := h.repo.Create(c.Request.Context(), assessmentID, req.FileName, req.FileType, req.Size, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "document": doc, "upload_url": url})
}

func (h *Handler) list(c *gin.Context) {
	assessmentID, ok := h.ownedAssessment(c)
	if !ok {
		return
	}

	docs, err := h.repo.ListByAssessment(c.Request.Context(), assessmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "documents": docs})
}

func (h *Handler) ownedAssessment(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid assessment id"})
		return uuid.Nil, false
	}

	if _, err := h.owners.Get(c.Request.Context(), id, auth.UserUID(c)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "assessment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return uuid.Nil, false
	}
	return id, true
}

// RegisterAssessmentSubroutes mounts document routes under the assessment
// resource.
func RegisterAssessmentSubroutes(g gin.IRouter, h *Handler) {
	g.POST("/:id/documents", h.createUpload)
	g.GET("/:id/documents", h.list)
}
