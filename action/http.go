package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/resilience"
	"github.com/stormforge/stormforge/session"
	"github.com/stormforge/stormforge/telemetry"
)

// Method is one of the HTTP verbs spec §4.5 names.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	PATCH  Method = "PATCH"
	DELETE Method = "DELETE"
	HEAD   Method = "HEAD"
)

// ResponseHandler inspects a completed HTTP response against the session
// that produced it. It runs after cookies have been captured and the
// latency sample recorded, so handlers can safely record_result/errors
// themselves.
type ResponseHandler func(s *session.Session, resp *http.Response, body []byte) *session.Session

// HTTPAction is spec §4.5's HTTP driver: method/path/headers/params/body,
// URL synthesis against config.base_url, and metrics_url templating for
// high-cardinality paths. Grounded on
// itsneelabh-gomind/ai/providers/base.go's BaseClient (http.Client with a
// timeout, structured request/response logging) adapted from an
// LLM-provider client into a generic load-test HTTP driver.
type HTTPAction struct {
	Method     Method
	Path       string
	Headers    map[string]string
	Params     map[string]string
	Body       io.Reader
	BodyType   string // "" | "json" | "form", set by AddBody
	MetricsURL string // overrides the recorded metric key's URL component
	OnResponse ResponseHandler

	Client  *http.Client
	Logger  core.Logger
	Breaker *resilience.CircuitBreaker // optional; nil skips breaker protection
	Retry   *resilience.RetryConfig    // optional; nil sends the request once
}

// NewHTTPAction builds an action with StormForge's default client: a
// bounded-timeout, trace-propagating http.Client (telemetry.NewTracedHTTPClient),
// mirroring BaseClient.NewBaseClient's timeout-bearing client construction.
func NewHTTPAction(method Method, path string) *HTTPAction {
	client := telemetry.NewTracedHTTPClient(nil)
	client.Timeout = 30 * time.Second
	return &HTTPAction{
		Method:  method,
		Path:    path,
		Headers: map[string]string{},
		Params:  map[string]string{},
		Client:  client,
		Logger:  &core.NoOpLogger{},
	}
}

func (h *HTTPAction) Name() string { return "http." + string(h.Method) }

// AddBody implements spec §4.5's add_body helper: json encodes value and
// sets Content-Type application/json; form encodes value as a
// www-form-urlencoded body.
func (h *HTTPAction) AddBody(kind string, value interface{}) error {
	switch kind {
	case "json":
		buf, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode json body: %w", err)
		}
		h.Body = bytes.NewReader(buf)
		h.BodyType = "json"
		h.Headers["Content-Type"] = "application/json"
	case "form":
		values, ok := value.(url.Values)
		if !ok {
			return fmt.Errorf("form body must be url.Values, got %T", value)
		}
		h.Body = strings.NewReader(values.Encode())
		h.BodyType = "form"
		h.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	default:
		return fmt.Errorf("unknown body kind %q", kind)
	}
	return nil
}

// resolveURL implements spec §4.5's URL synthesis: absolute paths are used
// as-is, otherwise prefixed with config.base_url. For GET, params are
// encoded as the query string.
func (h *HTTPAction) resolveURL(s *session.Session) (string, error) {
	raw := h.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		base, err := s.ConfigValue("base_url")
		if err != nil {
			return "", err
		}
		baseStr, _ := base.(string)
		raw = strings.TrimRight(baseStr, "/") + "/" + strings.TrimLeft(raw, "/")
	}

	if h.Method == GET && len(h.Params) > 0 {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse url %q: %w", raw, err)
		}
		q := u.Query()
		for k, v := range h.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		raw = u.String()
	}
	return raw, nil
}

// metricURL returns the MetricsURL override if set, else the literal path,
// implementing spec §4.5's "optional metrics_url ... when the real URL
// contains high-cardinality ids".
func (h *HTTPAction) metricURL() string {
	if h.MetricsURL != "" {
		return h.MetricsURL
	}
	return h.Path
}

// Run executes the request, recording a latency sample under
// (method, metrics_url_or_url), capturing Set-Cookie headers, storing the
// response in results when enabled, and recording a structured error on
// transport failure — all per spec §4.5.
func (h *HTTPAction) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	rawURL, err := h.resolveURL(s)
	if err != nil {
		return s, err
	}

	var body io.Reader
	if h.Method != GET && h.Method != HEAD && h.Body != nil {
		body = h.Body
	}

	req, err := http.NewRequestWithContext(ctx, string(h.Method), rawURL, body)
	if err != nil {
		return s, core.NewActionError(h.Name(), s.ID, fmt.Errorf("build request: %w", err))
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	if cookies := s.CookieHeader(); cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	if user, pass, ok := basicAuth(s); ok {
		req.SetBasicAuth(user, pass)
	}

	key := metrics.ActionURLKey(string(h.Method), h.metricURL())
	start := core.Timestamp()
	var resp *http.Response
	doErr := h.doWithResilience(ctx, func() error {
		if req.GetBody != nil {
			fresh, err := req.GetBody()
			if err != nil {
				return err
			}
			req.Body = fresh
		}
		var doErr error
		resp, doErr = h.Client.Do(req)
		return doErr
	})
	elapsed := core.Elapsed(start)

	if doErr != nil {
		wrapped := core.NewActionError(h.Name(), s.ID, fmt.Errorf("%w: %s", core.ErrRequestFailed, doErr))
		return s.RecordError(key, wrapped), wrapped
	}
	defer resp.Body.Close()

	out := s.RecordMetric(key, elapsed)
	out = captureCookies(out, resp.Header.Values("Set-Cookie"))

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		wrapped := core.NewActionError(h.Name(), s.ID, fmt.Errorf("read response body: %w", readErr))
		return out.RecordError(key, wrapped), nil
	}

	if out.StoreResultsEnabled() {
		out = out.RecordResult(key, map[string]interface{}{
			"status": resp.StatusCode,
			"body":   data,
		})
	}

	if h.OnResponse != nil {
		out = h.OnResponse(out, resp, data)
	}
	return out, nil
}

// doWithResilience runs do, optionally wrapped in retry and/or a circuit
// breaker. Retry is only safe to combine with a body-bearing request when
// the caller built Body as a re-readable buffer (bytes.Reader/strings.Reader
// both are, and Run rewinds such a body before every attempt); AddBody
// always builds one of those.
func (h *HTTPAction) doWithResilience(ctx context.Context, do func() error) error {
	switch {
	case h.Breaker != nil && h.Retry != nil:
		return resilience.Retry(ctx, h.Retry, func() error {
			return resilience.WithCircuitBreaker(ctx, h.Breaker, do)
		})
	case h.Breaker != nil:
		return resilience.WithCircuitBreaker(ctx, h.Breaker, do)
	case h.Retry != nil:
		return resilience.Retry(ctx, h.Retry, do)
	default:
		return do()
	}
}

func basicAuth(s *session.Session) (user, pass string, ok bool) {
	v, err := s.ConfigValue("basic_auth")
	if err != nil {
		return "", "", false
	}
	pair, ok := v.([2]string)
	if !ok {
		return "", "", false
	}
	return pair[0], pair[1], true
}

func captureCookies(s *session.Session, setCookies []string) *session.Session {
	if len(setCookies) == 0 {
		return s
	}
	return s.AddCookies(setCookies)
}
