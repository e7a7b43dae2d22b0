// Package api implements the typed REST client for the Maven backend.
//
// This file contains the request pipeline shared by all endpoint wrappers:
// token injection, correlation IDs, client-side rate limiting, Prometheus
// metrics, OpenTelemetry spans, and decoding of the backend's error envelope
// into the package error taxonomy.
//
// Transport-level timeouts belong to the injected http.Client; the pipeline's
// only responsibility on failure is to classify it (see errors.go).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/maventax/maven-client/internal/metrics"
)

const (
	headerRequestID = "X-Request-ID"
	// The backend uses DRF/Knox token auth: "Authorization: Token <key>".
	authScheme = "Token"

	// maxErrorBodyBytes caps how much of an error response body is read when
	// decoding the envelope, to bound memory on misbehaving servers.
	maxErrorBodyBytes = 64 << 10
)

// TokenSource supplies the current bearer credential. Implementations must be
// safe for concurrent use; an empty string means "no credential" and the
// request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000/api".
	BaseURL string
	// HTTPClient executes regular requests. Required; its Timeout is the
	// request-level timeout.
	HTTPClient *http.Client
	// UploadClient executes document uploads. Falls back to HTTPClient when
	// nil; configure a longer timeout for large files.
	UploadClient *http.Client
	// Tokens supplies the session credential; nil sends everything
	// unauthenticated.
	Tokens TokenSource
	// OnAuthError is invoked whenever an authenticated call is rejected with
	// 401. Implementations must be idempotent.
	OnAuthError func()
	// RateRPS / RateBurst bound outbound request rate. RateRPS <= 0 disables
	// limiting.
	RateRPS   float64
	RateBurst int
	// Logger for request-level debug logs; a disabled logger is used when
	// zero.
	Logger zerolog.Logger
}

// Client is the Maven backend REST client. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	uploadc *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	onAuth  func()
	log     zerolog.Logger
}

// New constructs a Client from opts. BaseURL and HTTPClient are required.
func New(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpc:   opts.HTTPClient,
		uploadc: opts.UploadClient,
		tokens:  opts.Tokens,
		onAuth:  opts.OnAuthError,
		log:     opts.Logger,
	}
	if c.uploadc == nil {
		c.uploadc = c.httpc
	}
	if opts.RateRPS > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateRPS), burst)
	}
	return c
}

// errEnvelope is the backend error body. Different endpoints populate
// different fields (DRF uses "detail", the app views use "error", the
// structured envelope uses code/message), so all are accepted.
type errEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ErrMsg  string `json:"error"`
	Detail  string `json:"detail"`
}

func (e errEnvelope) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrMsg != "":
		return e.ErrMsg
	default:
		return e.Detail
	}
}

// call executes a JSON request/response round trip.
//
//   - op:    stable operation name for spans and metrics (e.g. "chat.send")
//   - path:  backend path relative to BaseURL (e.g. "ai/chat/")
//   - in:    request body, JSON-encoded when non-nil
//   - out:   response target, JSON-decoded when non-nil and status is 2xx
//   - authed: attach the session token (and fire OnAuthError on 401)
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return newValidationError("request could not be encoded: " + err.Error())
		}
		body = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, method, path, query, body, authed)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(req, op, out, authed, c.httpc)
}

// newRequest builds an *http.Request with the shared headers attached.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, authed bool) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, newValidationError("invalid request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())
	if authed && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", authScheme+" "+tok)
		}
	}
	return req, nil
}

// roundTrip runs the request through the limiter, records metrics and a span,
// and decodes either the success body into out or the error envelope into a
// typed *Error.
func (c *Client) roundTrip(req *http.Request, op string, out any, authed bool, hc *http.Client) error {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return newTransportError(err)
		}
	}

	tr := otel.Tracer("api/Client")
	ctx, span := tr.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	metrics.InflightInc()
	start := time.Now()
	resp, err := hc.Do(req)
	elapsed := time.Since(start)
	metrics.InflightDec()

	if err != nil {
		metrics.ObserveRequest(op, req.Method, 0, elapsed)
		c.log.Debug().Str("operation", op).Err(err).Dur("elapsed", elapsed).Msg("api request failed")
		return newTransportError(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.ObserveRequest(op, req.Method, resp.StatusCode, elapsed)
	c.log.Debug().
		Str("operation", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Code: CodeInternal,
				Message: "response could not be decoded", Err: err}
		}
		return nil
	}

	var env errEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = json.Unmarshal(raw, &env)
	apiErr := newStatusError(resp.StatusCode, env.Code, env.text())

	if apiErr.Kind == KindAuth && authed && c.onAuth != nil {
		c.onAuth()
	}
	return apiErr
}
