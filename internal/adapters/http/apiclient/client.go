// Package apiclient talks to the activities API:
//
//	GET  /activities
//	POST /activities/{name}/signup?email={email}
//
// Every call owns its own cancellation, armed by a timer from the injected
// Environment. When the timer fires the call fails with ErrTimeout.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/signupdesk/internal/domain/model"
	"github.com/okian/signupdesk/internal/env"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

const (
	defaultTimeout = 7 * time.Second

	// HeaderErrorType disambiguates 409 responses.
	HeaderErrorType = "X-Error-Type"
	// HeaderRequestID tags every outbound request.
	HeaderRequestID = "X-Request-ID"

	endpointActivities = "activities"
	endpointSignup     = "signup"

	maxBodyBytes = 1 << 20
)

// Client is an activities API client.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	env     env.Environment
	logger  logger.Logger
	newID   func() string
}

// New creates a client for the API served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadBaseURL, baseURL)
	}
	c := &Client{
		base:    strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
		env:     env.NewSystem(),
		logger:  logger.Nop(),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchActivities loads the catalog. Any non-2xx status is an error; the
// returned catalog keeps the JSON object's key order.
func (c *Client) FetchActivities(ctx context.Context) (model.Catalog, error) {
	var catalog model.Catalog
	err := c.do(ctx, endpointActivities, http.MethodGet, c.base+"/activities", func(resp *http.Response) error {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: GET /activities returned %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		var err error
		catalog, err = decodeCatalog(io.LimitReader(resp.Body, maxBodyBytes))
		return err
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Signup registers email for activity. HTTP error statuses are not errors:
// they come back in the result for the caller to map. The error is non-nil
// only when no usable response arrived.
func (c *Client) Signup(ctx context.Context, activity, email string) (model.SignupResult, error) {
	target := c.base + "/activities/" + url.PathEscape(activity) + "/signup?email=" + url.QueryEscape(email)

	var result model.SignupResult
	err := c.do(ctx, endpointSignup, http.MethodPost, target, func(resp *http.Response) error {
		result = model.SignupResult{
			StatusCode: resp.StatusCode,
			ErrorType:  resp.Header.Get(HeaderErrorType),
		}
		var body signupBody
		decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body)
		if result.OK() {
			if decErr != nil && !errors.Is(decErr, io.EOF) {
				return fmt.Errorf("%w: signup response: %w", ErrDecode, decErr)
			}
			result.Message = body.Message
			return nil
		}
		// An unreadable error body still carries an authoritative status,
		// unless the read stopped because the call itself was cancelled.
		if decErr != nil {
			if context.Cause(resp.Request.Context()) != nil {
				return fmt.Errorf("signup response: %w", decErr)
			}
			return nil
		}
		result.Detail = body.detail()
		return nil
	})
	if err != nil {
		return model.SignupResult{}, err
	}
	return result, nil
}

// do sends one request under its own timer and hands the response to read.
// Timeouts cover the body read as well as the headers.
func (c *Client) do(ctx context.Context, endpoint, method, target string, read func(*http.Response) error) error {
	start := time.Now()
	reqID := c.newID()
	log := c.logger.With(logger.String("endpoint", endpoint), logger.String("request_id", reqID))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	timer := c.env.AfterFunc(c.timeout, func() { cancel(ErrTimeout) })
	defer timer.Stop()

	err := func() error {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return fmt.Errorf("build %s request: %w", endpoint, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(HeaderRequestID, reqID)

		resp, err := c.http.Do(req)
		if err != nil {
			return c.wrap(ctx, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := read(resp); err != nil {
			return c.wrap(ctx, err)
		}
		log.Debug(ctx, "api call completed", logger.Int("status", resp.StatusCode))
		return nil
	}()

	metrics.RecordAPILatency(endpoint, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordAPIRequest(endpoint, Classify(err, c.env).String())
		log.Debug(ctx, "api call failed", logger.Error(err))
		return err
	}
	metrics.RecordAPIRequest(endpoint, "ok")
	return nil
}

// wrap marks err as a timeout when our own timer cancelled the call.
func (c *Client) wrap(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

type signupBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// detail returns the detail text when the server sent a plain string.
func (b signupBody) detail() string {
	var s string
	if len(b.Detail) == 0 || json.Unmarshal(b.Detail, &s) != nil {
		return ""
	}
	return s
}
