package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/resilience"
	"github.com/lastpick/survival-pool/internal/usecase"
)

const defaultTimeout = 15 * time.Second

var errLedgerTransient = crerr.New("ledger transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the payout ledger service. Payout requests carry the
// room ID as an idempotency key, so a retried distribution settles once.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type payoutShare struct {
	UserID string `json:"user_id"`
	Share  string `json:"share"`
}

type payoutRequest struct {
	IdempotencyKey string        `json:"idempotency_key"`
	RoomID         string        `json:"room_id"`
	AmountCents    int64         `json:"amount_cents"`
	Shares         []payoutShare `json:"shares"`
}

func (c *Client) Distribute(ctx context.Context, roomID string, potCents int64, shares map[string]decimal.Decimal) error {
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}
	if len(shares) == 0 {
		return fmt.Errorf("shares are required")
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "ledger circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: payout ledger is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	req := payoutRequest{
		IdempotencyKey: "room-payout-" + roomID,
		RoomID:         roomID,
		AmountCents:    potCents,
		Shares:         make([]payoutShare, 0, len(shares)),
	}
	for userID, share := range shares {
		req.Shares = append(req.Shares, payoutShare{UserID: userID, Share: share.String()})
	}

	body, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode payout request: %w", err)
	}

	err = c.executeRequest(ctx, c.baseURL+"/v1/payouts", body)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errLedgerTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}

	return err
}

func (c *Client) executeRequest(ctx context.Context, fullURL string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("content-type", "application/json")
		req.Header.Set("accept", "application/json")
		req.Header.Set("authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errLedgerTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errLedgerTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: ledger status=%d body=%s", errLedgerTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return fmt.Errorf("ledger status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("ledger request failed")
	}
	c.logger.WarnContext(ctx, "ledger request failed", "url", fullURL, "error", lastErr)
	return lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
