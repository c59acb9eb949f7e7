// Package telemetry provides the default core.Logger implementation and the
// OpenTelemetry tracing/metrics wiring used across StormForge's action,
// worker, and master packages.
package telemetry

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the logrus-backed core.Logger implementation. Field shape and
// WithContext trace-id extraction follow
// evalgo-org-eve/common/logger.go's ContextLogger, trimmed to the plain
// Info/Warn/Error/Debug surface core.Logger declares.
type Logger struct {
	base *logrus.Logger
}

// NewLogger builds a Logger for serviceName. format is "json" or "text";
// an empty format auto-detects "json" inside Kubernetes (KUBERNETES_SERVICE_HOST
// set) and "text" otherwise, the same detection evalgo-org-eve's base logger
// config and the teacher's TelemetryLogger both perform.
func NewLogger(serviceName, level, format string) *Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(level))

	if format == "" {
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		} else {
			format = "text"
		}
	}
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)

	return &Logger{base: l.WithField("service", serviceName).Logger}
}

func parseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.base.WithFields(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.base.WithFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.base.WithFields(fields).Error(msg)
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.base.WithFields(fields).Debug(msg)
}

// withTrace copies fields and adds trace_id/span_id when ctx carries an
// active OpenTelemetry span, correlating logs with traces the way
// GetTraceContext documents.
func (l *Logger) withTrace(ctx context.Context, fields map[string]interface{}) logrus.Fields {
	out := make(logrus.Fields, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	if tc := GetTraceContext(ctx); tc.TraceID != "" {
		out["trace_id"] = tc.TraceID
		out["span_id"] = tc.SpanID
	}
	return out
}

func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.base.WithFields(l.withTrace(ctx, fields)).Info(msg)
}

func (l *Logger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.base.WithFields(l.withTrace(ctx, fields)).Warn(msg)
}

func (l *Logger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.base.WithFields(l.withTrace(ctx, fields)).Error(msg)
}

func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.base.WithFields(l.withTrace(ctx, fields)).Debug(msg)
}
