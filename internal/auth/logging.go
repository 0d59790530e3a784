package auth

import (
	"fmt"
	"net/http"
	"time"

	"ms-marketplace/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs every request with its method, path, status and
// duration. The path is enriched with the bearer token's subject when
// one is present; the token is not verified here, verification is
// Middleware's job.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			subject := "-"
			if raw, err := ExtractTokenFromRequest(r); err == nil {
				if sub, err := ExtractUserIDFromJWT(raw); err == nil {
					subject = sub
				}
			}
			log.LogAPI(r.Method,
				fmt.Sprintf("%s user=%s", r.URL.Path, subject),
				fmt.Sprintf("%d", rec.status),
				time.Since(start).String())
		})
	}
}
