// Package inference wraps the external model gateway that produces triage
// rankings, domain analyses, and executive summaries. Every call can fail or
// return malformed output; callers own the fallback policy.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
)

const (
	// DefaultTimeout covers triage and summary calls.
	DefaultTimeout = 60 * time.Second
	// LongTimeout covers per-domain deep analysis.
	LongTimeout = 90 * time.Second
)

// Client talks to the inference gateway.
type Client struct {
	baseURL       string
	defaultClient *http.Client
	longClient    *http.Client // for per-domain analysis (90s)
	limiter       *rate.Limiter
}

// Options configures the client. When TokenURL is set, requests carry an
// OAuth2 client-credentials bearer token.
type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RateLimit    float64 // requests per second; 0 disables limiting
}

// NewClient creates an inference gateway client.
func NewClient(opts Options) *Client {
	base := http.DefaultTransport
	if opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		base = &oauth2Transport{source: cc.TokenSource(context.Background()), next: base}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Client{
		baseURL:       opts.BaseURL,
		defaultClient: &http.Client{Timeout: DefaultTimeout, Transport: base},
		longClient:    &http.Client{Timeout: LongTimeout, Transport: base},
		limiter:       rate.NewLimiter(limit, 1),
	}
}

// oauth2Transport injects a client-credentials bearer token per request.
type oauth2Transport struct {
	source oauth2.TokenSource
	next   http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("inference token: %w", err)
	}
	clone := req.Clone(req.Context())
	tok.SetAuthHeader(clone)
	return t.next.RoundTrip(clone)
}

// ResponseItem is one answered question sent for analysis.
type ResponseItem struct {
	QuestionID string `json:"question_id"`
	DomainName string `json:"domain_name"`
	Response   string `json:"response"`
	Score      int    `json:"score"`
}

// DocumentItem is uploaded-document metadata; content bytes never travel here.
type DocumentItem struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

// TriageRequest asks the gateway to rank domains by severity.
type TriageRequest struct {
	Responses  []ResponseItem        `json:"responses"`
	Company    domain.CompanyContext `json:"company"`
	MaxDomains int                   `json:"max_domains"`
}

// TriageResult is the ranked priority list.
type TriageResult struct {
	PriorityDomains []string `json:"priority_domains"`
	CriticalIssues  []string `json:"critical_issues"`
}

// DomainRequest asks for one domain's deep analysis.
type DomainRequest struct {
	DomainName string                `json:"domain_name"`
	Specialist string                `json:"specialist"`
	Responses  []ResponseItem        `json:"responses"`
	Documents  []DocumentItem        `json:"documents"`
	Company    domain.CompanyContext `json:"company"`
}

// DomainResult is the gateway's analysis of one domain. Health is advisory
// only; callers re-derive it from Score.
type DomainResult struct {
	Score           int      `json:"score"`
	Health          string   `json:"health"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	KeyInsights     []string `json:"key_insights"`
	QuickWins       []string `json:"quick_wins"`
	RiskFactors     []string `json:"risk_factors"`
}

// SummaryRequest asks for the cross-domain executive narrative.
type SummaryRequest struct {
	Analyses []DomainSummaryItem   `json:"analyses"`
	Company  domain.CompanyContext `json:"company"`
}

// DomainSummaryItem is the condensed per-domain input to the summary call.
type DomainSummaryItem struct {
	DomainName string `json:"domain_name"`
	Score      int    `json:"score"`
	Health     string `json:"health"`
	Summary    string `json:"summary"`
}

// KitRequest asks for a staged implementation plan for one domain.
type KitRequest struct {
	DomainName      string                `json:"domain_name"`
	Recommendations []string              `json:"recommendations"`
	QuickWins       []string              `json:"quick_wins"`
	Company         domain.CompanyContext `json:"company"`
}

// KitResult is the staged plan.
type KitResult struct {
	First30Days []string `json:"first_30_days"`
	Next60Days  []string `json:"next_60_days"`
	Next90Days  []string `json:"next_90_days"`
}

// Triage ranks domains by severity.
func (c *Client) Triage(ctx context.Context, req TriageRequest) (*TriageResult, error) {
	var out TriageResult
	if err := c.post(ctx, c.defaultClient, "/v1/triage", req, &out); err != nil {
		return nil, err
	}
	if len(out.PriorityDomains) == 0 {
		return nil, fmt.Errorf("triage: empty priority list")
	}
	return &out, nil
}

// AnalyzeDomain produces one domain's analysis.
func (c *Client) AnalyzeDomain(ctx context.Context, req DomainRequest) (*DomainResult, error) {
	var out DomainResult
	if err := c.post(ctx, c.longClient, "/v1/domains/analyze", req, &out); err != nil {
		return nil, err
	}
	if out.Score < domain.MinScore || out.Score > domain.MaxScore {
		return nil, fmt.Errorf("analyze %s: score %d out of range", req.DomainName, out.Score)
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("analyze %s: empty summary", req.DomainName)
	}
	return &out, nil
}

// Summarize produces the executive narrative.
func (c *Client) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, c.defaultClient, "/v1/summaries", req, &out); err != nil {
		return "", err
	}
	if out.Summary == "" {
		return "", fmt.Errorf("summarize: empty summary")
	}
	return out.Summary, nil
}

// GenerateKit produces a staged implementation plan.
func (c *Client) GenerateKit(ctx context.Context, req KitRequest) (*KitResult, error) {
	var out KitResult
	if err := c.post(ctx, c.defaultClient, "/v1/kits", req, &out); err != nil {
		return nil, err
	}
	if len(out.First30Days) == 0 {
		return nil, fmt.Errorf("kit %s: empty plan", req.DomainName)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
