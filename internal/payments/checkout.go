package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Checkout builds signed gateway checkout links. The gateway validates the
// token with the shared secret; no card data ever touches this backend.
type Checkout struct {
	baseURL string
	secret  string
}

func NewCheckout(baseURL, secret string) *Checkout {
	return &Checkout{baseURL: baseURL, secret: secret}
}

// URL returns the hosted checkout link for an assessment.
func (c *Checkout) URL(assessmentID uuid.UUID, ownerUID string) string {
	payload := assessmentID.String() + ":" + ownerUID
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(payload))
	token := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("assessment_id", assessmentID.String())
	q.Set("user_id", ownerUID)
	q.Set("token", token)
	return fmt.Sprintf("%s?%s", c.baseURL, q.Encode())
}
