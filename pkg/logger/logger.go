package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/smartsql-client/pkg/config"
	"github.com/noah-isme/smartsql-client/pkg/middleware/requestid"
)

// New builds the development backend's logger: JSON in production,
// development defaults otherwise, always on stderr.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Encoding = "json"
	if cfg.Log.Format == "console" {
		zapCfg.Encoding = "console"
	}
	applyLevel(&zapCfg, cfg.Log.Level, zapcore.InfoLevel)

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

// NewCLI builds the terminal client's logger. It stays at warn level unless
// LOG_LEVEL asks for more so log lines do not interleave with tables.
func NewCLI(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Encoding = "console"
	if cfg.Log.Format == "json" {
		zapCfg.Encoding = "json"
	}
	applyLevel(&zapCfg, cfg.Log.Level, zapcore.WarnLevel)
	zapCfg.DisableStacktrace = true
	zapCfg.DisableCaller = true
	zapCfg.EncoderConfig.TimeKey = ""
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

func applyLevel(zapCfg *zap.Config, level string, fallback zapcore.Level) {
	zapCfg.Level = zap.NewAtomicLevelAt(fallback)
	if level == "" {
		return
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(l)
	}
}

// GinMiddleware logs every request served by the development backend. Server
// errors log at error level, client errors at warn, probes at debug.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch path := c.Request.URL.Path; {
		case status >= 500:
			l.Error("http_request", fields...)
		case status >= 400:
			l.Warn("http_request", fields...)
		case path == "/health" || path == "/ready" || strings.HasPrefix(path, "/metrics"):
			l.Debug("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
	}
}
