package logger

import (
	"context"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes structured JSON logs with the service and host attached to every entry
type Logger struct {
	service  string
	hostname string
	zl       *zap.Logger
}

// New creates a logger that writes JSON to stdout
func New(service string) *Logger {
	return newLogger(service, consoleCore())
}

// NewNop creates a logger that discards everything
func NewNop() *Logger {
	return &Logger{service: "nop", zl: zap.NewNop()}
}

// WithOTel returns a logger that also exports entries through the global OpenTelemetry log provider
func (l *Logger) WithOTel(scope string) *Logger {
	otelCore := otelzap.NewCore(scope,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
	)
	return newLogger(l.service, zapcore.NewTee(otelCore, consoleCore()))
}

func newLogger(service string, core zapcore.Core) *Logger {
	hostname, _ := os.Hostname()

	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.Fields(
			zap.String("service", service),
			zap.String("hostname", hostname),
		),
	)

	return &Logger{
		service:  service,
		hostname: hostname,
		zl:       zl,
	}
}

func consoleCore() zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
}

// Info logs an informational event
func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.zl.Info(message, l.fields(action, requestID, fields)...)
}

// Debug logs a diagnostic event
func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.zl.Debug(message, l.fields(action, requestID, fields)...)
}

// Error logs a failure; err may be nil for validation style failures
func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	zf := l.fields(action, requestID, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Error(message, zf...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) fields(action, requestID string, fields map[string]interface{}) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+2)
	zf = append(zf, zap.String("action", action), zap.String("request_id", requestID))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

// GenerateRequestID returns a new random request id
func GenerateRequestID() string {
	return uuid.NewString()
}

type requestIDKey struct{}

// WithRequestID stores the request id on ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom returns the request id stored on ctx, or an empty string
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
