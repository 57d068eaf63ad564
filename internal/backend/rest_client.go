// Package backend is the HTTP client for the bot-control service.
package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pipeline-dashboard-go/internal/config"
	"pipeline-dashboard-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pathTrades           = "/trades"
	pathPipelines        = "/pipelines"
	pathPositions        = "/positions"
	pathPrice            = "/price/{symbol}"
	pathPipelinesMetrics = "/pipelines_metrics"
	pathResources        = "/resources/{names}"
	pathBalance          = "/futures_account_balance"
	pathStartBot         = "/start_bot"
	pathStopBot          = "/stop_bot"
	pathDeleteBot        = "/delete_bot/{pipelineId}"
)

// ErrTransport marks failures where no usable response was received: network
// errors, timeouts, exhausted retries and unexpected status codes.
var ErrTransport = errors.New("backend transport failure")

// ClientInterface defines the backend operations used by the dashboard.
type ClientInterface interface {
	GetTrades(ctx context.Context, page int) ([]models.RawTrade, error)
	GetPipelines(ctx context.Context) ([]models.Pipeline, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetPrice(ctx context.Context, symbol string) (*models.PriceResponse, error)
	GetPipelinesMetrics(ctx context.Context) (models.PipelinesMetrics, error)
	GetResources(ctx context.Context, names []string) (models.Resources, error)
	GetAccountBalance(ctx context.Context) (*models.BalanceResponse, error)
	StartBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error)
	EditBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error)
	StopBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error)
	DeleteBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error)
}

// RestClient is a client for the bot-control REST API.
// It implements the ClientInterface.
type RestClient struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
}

// ensure RestClient implements the interface
var _ ClientInterface = (*RestClient)(nil)

// NewRestClient creates a new backend client.
func NewRestClient(cfg *config.Backend, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	return &RestClient{
		client:     client,
		logger:     logger.Named("backend"),
		limiter:    rate.NewLimiter(limit, cfg.RateLimitBurst),
		maxRetries: maxRetries,
		retryWait:  time.Second,
	}
}

// doRequest executes req with rate limiting and retries. 429 and 418 are
// retried with exponential backoff for every method. 5xx and network errors
// are retried only for GET: a mutating request may already have run on the
// backend and is never sent twice. Other error statuses fail immediately with
// the response attached.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	idempotent := method == resty.MethodGet

	req.SetContext(ctx)

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter wait failed: %v", ErrTransport, err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= http.StatusInternalServerError {
				shouldRetry = idempotent
			}
			if !shouldRetry {
				return resp, &StatusError{Code: statusCode, Body: resp.String()}
			}
		} else if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		} else if !idempotent {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		} else {
			shouldRetry = true
		}

		if i == c.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.retryWait
		}

		c.logger.Warn("Request failed, retrying...",
			zap.String("url", url),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}
	}

	if err == nil {
		err = &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return nil, fmt.Errorf("%w: request failed after %d attempts: %v", ErrTransport, c.maxRetries, err)
}

// StatusError is returned for a non-retryable error status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// Unwrap makes a StatusError match ErrTransport.
func (e *StatusError) Unwrap() error {
	return ErrTransport
}
