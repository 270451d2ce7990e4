package middleware

import (
	"net/http"
	"time"

	"leavelite/internal/platform/metrics"
)

// Metrics records every response in collector. A panic passing through counts as a 500
// and is re-raised for Recoverer.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.Begin()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if rec := recover(); rec != nil {
					collector.Record(http.StatusInternalServerError, time.Since(start))
					panic(rec)
				}
				collector.Record(recorder.status, time.Since(start))
			}()
			next.ServeHTTP(recorder, r)
		})
	}
}
