package server

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicops/chartquery/internal/logging"
)

// requestLog emits one canonical line per request and echoes the
// request ID back to the client.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := chimiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		httpLogger().WithFields(map[string]interface{}{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"bytes":      ww.BytesWritten(),
		}).Info("http request")
	})
}

// jsonRecoverer converts a handler panic into a JSON 500 instead of the
// default plain-text stack dump.
func jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				httpLogger().Errorf("panic recovered: %v", rvr)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: "internal error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// httpLogger returns the global logger, installing the fallback when
// none has been configured. Logger methods are not nil-receiver safe.
func httpLogger() *logging.Logger {
	logger := logging.GetLogger()
	if logger == nil {
		logging.SetupFallbackLogger()
		logger = logging.GetLogger()
	}

	return logger
}
