package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a zap logger for mode (development, production or test).
// LOG_LEVEL, when set to a zap level name, overrides the mode's level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	level := zap.DebugLevel
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		level = zap.InfoLevel
	case "test":
		cfg = zap.NewDevelopmentConfig()
		level = zap.WarnLevel
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.SugaredLogger.Debugw(msg, scrub(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.SugaredLogger.Infow(msg, scrub(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.SugaredLogger.Warnw(msg, scrub(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.SugaredLogger.Errorw(msg, scrub(kv)...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.SugaredLogger.Fatalw(msg, scrub(kv)...) }

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(scrub(kv)...)}
}

type fieldRule int

const (
	keepField fieldRule = iota
	redactField
	hashField
)

// Any key containing one of these is a credential.
var credentialFragments = []string{
	"api_key", "apikey", "x-api-key",
	"authorization", "password", "secret", "token", "dsn",
}

// ruleFor classifies a log key. Key ids are hashed rather than dropped so
// requests from the same caller stay correlatable.
func ruleFor(key string) fieldRule {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return keepField
	}
	if strings.HasSuffix(key, "api_key_id") {
		return hashField
	}
	for _, frag := range credentialFragments {
		if strings.Contains(key, frag) {
			return redactField
		}
	}
	return keepField
}

var (
	scrubOnce    sync.Once
	scrubEnabled bool
	hashSalt     string
)

func scrubbing() bool {
	scrubOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
		default:
			scrubEnabled = true
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return scrubEnabled
}

func scrub(kv []any) []any {
	if len(kv) < 2 || !scrubbing() {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		if key, ok := out[i].(string); ok {
			out[i+1] = sanitizeValue(key, out[i+1])
		}
	}
	return out
}

func sanitizeValue(key string, val any) any {
	switch ruleFor(key) {
	case redactField:
		return "[REDACTED]"
	case hashField:
		return fingerprint(val)
	default:
		return val
	}
}

func fingerprint(val any) string {
	raw := strings.TrimSpace(fmt.Sprint(val))
	if val == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(hashSalt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}
