package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TracingMiddlewareConfig configures TracingMiddlewareWithConfig.
type TracingMiddlewareConfig struct {
	// ExcludedPaths are skipped entirely, e.g. "/healthz", "/metrics".
	ExcludedPaths []string

	// SpanNameFormatter names each span. Defaults to "HTTP {method} {path}".
	SpanNameFormatter func(operation string, r *http.Request) string
}

// TracingMiddleware wraps an http.Handler with otelhttp span creation so
// every call produces a span linked to the requesting client's trace.
// master/admin.go's control plane uses TracingMiddlewareWithConfig instead,
// to exclude its health routes.
func TracingMiddleware(serviceName string) func(http.Handler) http.Handler {
	return TracingMiddlewareWithConfig(serviceName, nil)
}

func TracingMiddlewareWithConfig(serviceName string, config *TracingMiddlewareConfig) func(http.Handler) http.Handler {
	var opts []otelhttp.Option

	if config != nil && len(config.ExcludedPaths) > 0 {
		excluded := make(map[string]bool, len(config.ExcludedPaths))
		for _, path := range config.ExcludedPaths {
			excluded[path] = true
		}
		opts = append(opts, otelhttp.WithFilter(func(r *http.Request) bool {
			return !excluded[r.URL.Path]
		}))
	}

	if config != nil && config.SpanNameFormatter != nil {
		opts = append(opts, otelhttp.WithSpanNameFormatter(config.SpanNameFormatter))
	} else {
		opts = append(opts, otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}))
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, opts...)
	}
}

// NewTracedHTTPClient wraps baseTransport (http.DefaultTransport if nil) so
// every request propagates W3C traceparent/tracestate headers. Used as
// action.HTTPAction's default client so synthetic traffic shows up linked to
// the load test's own trace.
func NewTracedHTTPClient(baseTransport http.RoundTripper) *http.Client {
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	return &http.Client{Transport: otelhttp.NewTransport(baseTransport)}
}

// NewTracedHTTPClientWithTransport is NewTracedHTTPClient with a pooled
// transport tuned for sustained service-to-service load.
func NewTracedHTTPClientWithTransport(transport *http.Transport) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	return &http.Client{Transport: otelhttp.NewTransport(transport)}
}
