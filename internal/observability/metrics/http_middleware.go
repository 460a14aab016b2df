package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// HTTPMetricsMiddleware instruments requests with Prometheus metrics. The
// path label uses the matched route pattern when the mux provides one, so
// record ids don't blow up label cardinality.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		ObserveHTTPRequest(r.Method, routeLabel(ww, r), strconv.Itoa(ww.status), time.Since(start))
	})
}

// RoutePattern captures the matched mux pattern into the metrics response
// writer. Middleware between the metrics layer and the mux may hand the mux
// a copied request (Session does, via WithContext), so the pattern set by
// the mux never reaches the outer middleware's request. Mount this directly
// in front of the mux.
func RoutePattern(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if ww, ok := w.(*statusWriter); ok {
			ww.pattern = r.Pattern
		}
	})
}

func routeLabel(ww *statusWriter, r *http.Request) string {
	switch {
	case ww.pattern != "":
		return ww.pattern
	case r.Pattern != "":
		return r.Pattern
	default:
		return r.URL.Path
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	pattern string
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
