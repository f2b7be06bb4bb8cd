package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorTypeAttrKey は根本原因のエラー型を記録する属性キー
const ErrorTypeAttrKey = "error.type"

// ErrFmtHandler decorates records carrying an ErrAttrKey attribute with the
// root error type and the cockroachdb/errors stack trace.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler so that error records gain
// ErrorTypeAttrKey and StacktraceAttrKey attributes.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := recordError(r); err != nil {
		r.AddAttrs(slog.String(ErrorTypeAttrKey, fmt.Sprintf("%T", errors.UnwrapAll(err))))
		if st := extractStacktrace(err); st != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, st))
		}
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// recordError は最初の ErrAttrKey 属性の error を返す
func recordError(r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		found, _ = attr.Value.Any().(error)
		return false
	})
	return found
}

// extractStacktrace returns the outermost stack recorded in the chain.
// Message prefixes added by errors.Wrap are skipped.
func extractStacktrace(err error) string {
	for _, payload := range errors.GetAllSafeDetails(err) {
		if !strings.Contains(payload.OriginalTypeName, "withstack") {
			continue
		}
		if len(payload.SafeDetails) > 0 && payload.SafeDetails[0] != "" {
			return payload.SafeDetails[0]
		}
	}
	return ""
}
