package resultsfeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/resilience"
	"github.com/lastpick/survival-pool/internal/usecase"
)

var errFeedTransient = crerr.New("results feed transient failure")

type feedResult struct {
	FixtureID string `json:"fixture_id"`
	Outcome   string `json:"outcome"`
}

type feedEnvelope struct {
	Results []feedResult `json:"results"`
}

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client polls the results feed for finished fixtures. The feed only
// reports final outcomes; corrections go through the override path, not
// through here.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     &fasthttp.Client{ReadTimeout: timeout, WriteTimeout: timeout},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchFinalOutcomes returns all fixtures the feed currently reports as
// finished for one league gameweek. Gameweek 0 means "everything final
// so far".
func (c *Client) FetchFinalOutcomes(ctx context.Context, leagueID string, gameweek int) ([]usecase.ExternalResult, error) {
	if strings.TrimSpace(leagueID) == "" {
		return nil, fmt.Errorf("league id is required")
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "results feed circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: results feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	uri := c.buildRequestURI(leagueID, gameweek)
	raw, err := c.executeRequest(uri)
	if c.circuitEnabled {
		if err != nil && errors.Is(err, errFeedTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "results feed request failed", "league_id", leagueID, "gameweek", gameweek, "error", err)
		return nil, err
	}

	var envelope feedEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}

	out := make([]usecase.ExternalResult, 0, len(envelope.Results))
	for _, result := range envelope.Results {
		out = append(out, usecase.ExternalResult{
			FixtureID: result.FixtureID,
			Outcome:   result.Outcome,
		})
	}

	return out, nil
}

func (c *Client) buildRequestURI(leagueID string, gameweek int) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString("/v1/leagues/")
	_, _ = buf.WriteString(leagueID)
	_, _ = buf.WriteString("/results?status=final")
	if gameweek > 0 {
		_, _ = buf.WriteString(fmt.Sprintf("&gameweek=%d", gameweek))
	}

	return buf.String()
}

func (c *Client) executeRequest(uri string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errFeedTransient, err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		body := make([]byte, len(resp.Body()))
		copy(body, resp.Body())
		return body, nil
	case status == fasthttp.StatusTooManyRequests || status >= 500:
		return nil, fmt.Errorf("%w: feed status=%d", errFeedTransient, status)
	default:
		return nil, fmt.Errorf("feed status=%d", status)
	}
}
