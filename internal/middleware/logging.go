package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type authNoteKey struct{}

// authNote is planted by RequestLogger and filled in by RequireAuth,
// which runs further down the chain, so access logs can attribute the
// request to a member.
type authNote struct {
	memberID int64
}

func noteMember(ctx context.Context, memberID int64) {
	if note, ok := ctx.Value(authNoteKey{}).(*authNote); ok {
		note.memberID = memberID
	}
}

// RequestLogger returns middleware that logs each HTTP request with
// method, path, status code, duration, remote IP, and the acting member
// when the request is authenticated.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			note := &authNote{}
			r = r.WithContext(context.WithValue(r.Context(), authNoteKey{}, note))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote", RealIP(r)),
			}
			if note.memberID != 0 {
				attrs = append(attrs, slog.Int64("member_id", note.memberID))
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}
		})
	}
}
