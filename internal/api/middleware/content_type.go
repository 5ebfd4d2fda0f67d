package middleware

import "net/http"

// ContentTypeJSON defaults the response Content-Type to application/json
// once the handler commits a status that carries a body. Handlers may set
// their own type, e.g. for problem responses. 204 and 304 get none.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&jsonDefaultWriter{ResponseWriter: w}, r)
	})
}

type jsonDefaultWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *jsonDefaultWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if bodyAllowed(code) && w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *jsonDefaultWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *jsonDefaultWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func bodyAllowed(code int) bool {
	return code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified
}
