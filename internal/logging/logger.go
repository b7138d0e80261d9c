// Package logging wraps zap with the fields and helpers this service's
// packages use consistently: service identity, crawl/company context, and
// structured business-event logging for audit trails.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with service-scoped fields.
type Logger struct {
	*zap.Logger
	serviceName string
	environment string
}

// Config controls logger construction.
type Config struct {
	Level       string
	ServiceName string
	Environment string
	Format      string // "json" or "console"
}

// New builds a Logger with the given configuration, defaulting to JSON
// output at info level.
func New(cfg Config) *Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pricelens-core"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	base := zap.New(core, zap.AddCaller()).With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	return &Logger{Logger: base, serviceName: cfg.ServiceName, environment: cfg.Environment}
}

// WithCompany adds a company identifier to the logger context.
func (l *Logger) WithCompany(companyID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("company_id", companyID)), serviceName: l.serviceName, environment: l.environment}
}

// WithUser adds a user identifier to the logger context.
func (l *Logger) WithUser(userID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("user_id", userID)), serviceName: l.serviceName, environment: l.environment}
}

// WithRequestID adds a request identifier to the logger context.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID)), serviceName: l.serviceName, environment: l.environment}
}

// CrawlEvent logs a terminal crawl outcome for a company.
func (l *Logger) CrawlEvent(companyID, status string, duration time.Duration, reason string) {
	fields := []zap.Field{
		zap.String("company_id", companyID),
		zap.String("status", status),
		zap.Duration("duration", duration),
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	l.Info("crawl finished", fields...)
}

// AuditEvent logs a business-audit event mirroring what gets persisted to
// CompetitorAuditEvent.
func (l *Logger) AuditEvent(eventType, outcome string, metadata map[string]interface{}) {
	fields := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("outcome", outcome),
		zap.Time("occurred_at", time.Now().UTC()),
	}
	for k, v := range metadata {
		fields = append(fields, zap.Any(k, v))
	}
	l.Info("audit event", fields...)
}

// HTTPRequest logs a completed HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, duration time.Duration) {
	l.Info("http request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
}
