package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/tokensaver/internal/secrets"
)

const redacted = "[REDACTED]"

// RedactingEncoder masks sensitive values before the wrapped encoder sees
// them. Fields named in RedactionConfig.Keys are replaced outright; other
// string values keep their text with only credential spans masked, so a
// logged command stays readable.
type RedactingEncoder struct {
	zapcore.Encoder
	keys     map[string]bool
	scrubber *secrets.Scrubber
}

// NewRedactingEncoder wraps base. A disabled cfg returns a pass-through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) *RedactingEncoder {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}
	}
	keys := make(map[string]bool, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[strings.ToLower(k)] = true
	}
	return &RedactingEncoder{
		Encoder:  base,
		keys:     keys,
		scrubber: secrets.Default(),
	}
}

func (e *RedactingEncoder) sensitiveKey(key string) bool {
	return e.keys[strings.ToLower(key)]
}

func (e *RedactingEncoder) mask(val string) string {
	if e.scrubber == nil {
		return val
	}
	return e.scrubber.Redact(val)
}

func (e *RedactingEncoder) clean(f zapcore.Field) zapcore.Field {
	if e.sensitiveKey(f.Key) {
		return zap.String(f.Key, redacted)
	}
	if f.Type == zapcore.StringType {
		f.String = e.mask(f.String)
	}
	return f
}

// EncodeEntry masks per-entry fields, which bypass the Add* methods.
func (e *RedactingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.scrubber == nil {
		return e.Encoder.EncodeEntry(entry, fields)
	}
	clean := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		clean[i] = e.clean(f)
	}
	return e.Encoder.EncodeEntry(entry, clean)
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.sensitiveKey(key) {
		val = redacted
	}
	e.Encoder.AddString(key, e.mask(val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.sensitiveKey(key) {
		val = []byte(redacted)
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.sensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.sensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:  e.Encoder.Clone(),
		keys:     e.keys,
		scrubber: e.scrubber,
	}
}
