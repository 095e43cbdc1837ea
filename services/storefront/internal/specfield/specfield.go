// Package specfield decodes freeform product specification blobs. The blobs
// are typed into an admin form and regularly carry literal inch marks
// (15.6" display) that break the stored JSON, so decoding is a strict parse
// followed by exactly one narrow repair attempt.
package specfield

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/utafrali/storefront/pkg/logger"
)

// inchMark matches a quote directly after a digit whose next significant
// character cannot follow a closing string quote. The quote is therefore
// part of the value and needs escaping.
var inchMark = regexp.MustCompile(`(\d)"(\s*[^\s,:}\]])`)

// Parse returns value decoded as T, or fallback when it cannot be decoded.
// It never panics.
func Parse[T any](ctx context.Context, value any, fallback T) (out T) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).WarnContext(ctx, "specification parse panicked",
				slog.Any("panic", rec),
			)
			out = fallback
		}
	}()

	switch v := value.(type) {
	case nil:
		return fallback
	case T:
		return v
	case string:
		return parseText(ctx, v, fallback)
	case json.RawMessage:
		return parseRaw(ctx, v, fallback)
	case []byte:
		return parseRaw(ctx, v, fallback)
	case bool, float32, float64, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return fallback
	default:
		return convert(v, fallback)
	}
}

// parseRaw handles bytes taken straight from an API payload. A JSON string
// literal holds the encoded blob and is unwrapped once; an object or array
// is decoded directly.
func parseRaw[T any](ctx context.Context, raw []byte, fallback T) T {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return fallback
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal([]byte(trimmed), &text); err == nil {
			return parseText(ctx, text, fallback)
		}
	}
	return parseText(ctx, trimmed, fallback)
}

func parseText[T any](ctx context.Context, text string, fallback T) T {
	var out T
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out
	}

	repaired := Repair(text)
	if repaired != text {
		var retry T
		if err := json.Unmarshal([]byte(repaired), &retry); err == nil {
			return retry
		}
	}

	logger.FromContext(ctx).WarnContext(ctx, "unparseable specification field, using fallback",
		slog.String("input", text),
	)
	return fallback
}

// convert re-encodes an already structured value into T.
func convert[T any](v any, fallback T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return fallback
	}
	return out
}

// Repair escapes inch-mark quotes in a single pass. It does not attempt any
// other fix.
func Repair(text string) string {
	return inchMark.ReplaceAllString(text, `$1\"$2`)
}
