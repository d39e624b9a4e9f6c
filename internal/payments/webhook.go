// Package payments handles the payment gateway's asynchronous callbacks and
// checkout-link creation. The gateway SDK itself stays external; this side
// only verifies signatures and feeds confirmed events into the lifecycle
// machine, which absorbs duplicate deliveries.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-PulsePay-Signature"

const (
	EventSucceeded = "payment.succeeded"
	EventFailed    = "payment.failed"
)

// Event is the gateway's webhook payload.
type Event struct {
	Type         string `json:"type"`
	AssessmentID string `json:"assessment_id"`
	UserID       string `json:"user_id"`
}

// Lifecycle is the slice of the state machine the webhook drives.
type Lifecycle interface {
	OnPaymentSucceeded(ctx context.Context, id uuid.UUID) error
	OnPaymentFailed(ctx context.Context, id uuid.UUID) error
}

// Owners verifies an assessment belongs to the user named in the event.
type Owners interface {
	Get(ctx context.Context, id uuid.UUID, ownerUID string) (*domain.Assessment, error)
}

// WebhookHandler verifies and dispatches gateway events.
type WebhookHandler struct {
	secret    string
	lifecycle Lifecycle
	owners    Owners
}

func NewWebhookHandler(secret string, lc Lifecycle, owners Owners) *WebhookHandler {
	return &WebhookHandler{secret: secret, lifecycle: lc, owners: owners}
}

// Handle processes one webhook delivery. Repeats of an already-applied event
// are no-ops in the lifecycle machine, so the gateway may retry freely.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	id, err := uuid.Parse(ev.AssessmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid assessment id"})
		return
	}

	ctx := c.Request.Context()

	// The event's user must own the assessment it claims to pay for.
	if _, err := h.owners.Get(ctx, id, ev.UserID); err != nil {
		log.Printf("[payments] event for unknown assessment=%s user=%s: %v", ev.AssessmentID, ev.UserID, err)
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "assessment not found"})
		return
	}

	switch ev.Type {
	case EventSucceeded:
		err = h.lifecycle.OnPaymentSucceeded(ctx, id)
	case EventFailed:
		err = h.lifecycle.OnPaymentFailed(ctx, id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown event type"})
		return
	}

	if err != nil {
		log.Printf("[payments] event %s assessment=%s failed: %v", ev.Type, ev.AssessmentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// verify checks the body signature in constant time. An empty configured
// secret only passes in development setups where the config layer allows it.
func (h *WebhookHandler) verify(body []byte, signature string) bool {
	if h.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Register mounts the webhook outside the authenticated API group.
func (h *WebhookHandler) Register(r gin.IRouter) {
	r.POST("/webhooks/payments", h.Handle)
}
