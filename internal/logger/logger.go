package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"alfredoptarigan/cv-screener/internal/config"
)

const (
	// FieldJobID is the structured log field key for the evaluation job identifier.
	FieldJobID = "eval_job_id"
	// FieldPosting is the structured log field key for the job posting the candidate is scored against.
	FieldPosting = "job_id"
	// FieldBatchID is the structured log field key for an upload batch.
	FieldBatchID = "batch_id"
	// FieldService names the binary that wrote the entry.
	FieldService = "service"
)

// New builds the process logger from cfg. An explicit Level wins over Debug;
// every entry carries the service name so api and worker output can share a sink.
func New(cfg config.LogConfig, service string) (*zap.Logger, error) {
	level, err := resolveLevel(cfg)
	if err != nil {
		return nil, err
	}

	encoding := "console"
	encodeLevel := zapcore.CapitalColorLevelEncoder
	var sampling *zap.SamplingConfig
	if cfg.JSON {
		encoding = "json"
		encodeLevel = zapcore.LowercaseLevelEncoder
		// The poller logs once per tick per job; keep a flood of identical lines bounded.
		sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}

	zcfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		Sampling:         sampling,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "msg",
			LevelKey:     "level",
			EncodeLevel:  encodeLevel,
			TimeKey:      "time",
			EncodeTime:   zapcore.RFC3339TimeEncoder,
			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	if service = strings.TrimSpace(service); service != "" {
		zcfg.InitialFields = map[string]any{FieldService: service}
	}

	return zcfg.Build()
}

func resolveLevel(cfg config.LogConfig) (zapcore.Level, error) {
	if name := strings.TrimSpace(cfg.Level); name != "" {
		level, err := zapcore.ParseLevel(name)
		if err != nil {
			return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
		}
		return level, nil
	}
	if cfg.Debug {
		return zapcore.DebugLevel, nil
	}
	return zapcore.InfoLevel, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// JobFields returns the fields identifying one evaluation run. Empty values are skipped.
func JobFields(evalJobID, posting, batchID string) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	for _, kv := range [][2]string{
		{FieldJobID, evalJobID},
		{FieldPosting, posting},
		{FieldBatchID, batchID},
	} {
		if v := strings.TrimSpace(kv[1]); v != "" {
			fields = append(fields, zap.String(kv[0], v))
		}
	}
	return fields
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
