package restapi

import (
	"fmt"
	"net/http"
)

const noStoreCacheControl = "no-cache, no-store, must-revalidate"

// CacheControlMiddleware sets Cache-Control on successful responses to a
// public max-age of maxAgeSeconds. Errors, and every response when
// maxAgeSeconds is zero, are marked no-store.
func CacheControlMiddleware(maxAgeSeconds int, next http.Handler) http.Handler {
	success := noStoreCacheControl
	if maxAgeSeconds > 0 {
		success = fmt.Sprintf("public, max-age=%d", maxAgeSeconds)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, success: success}, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	success     string
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		value := noStoreCacheControl
		if code >= 200 && code < 300 {
			value = w.success
		}
		w.Header().Set("Cache-Control", value)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
