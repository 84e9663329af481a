package api

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// responseRecorder keeps the status code and body size a handler produced.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write without WriteHeader means an implicit 200.
func (w *responseRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// loggingMiddleware logs request duration and response size at debug level;
// the status API is polled often and would drown the tick logs otherwise.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.RequestURI(),
			"status": rec.status,
			"bytes":  rec.bytes,
			"dur_ms": time.Since(start).Milliseconds(),
		}).Debug("request served")
	})
}
