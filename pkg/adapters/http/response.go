package http

import "net/http"

// responseWriter runs onHeader once, right before the status line is written.
type responseWriter struct {
	http.ResponseWriter
	onHeader    func(http.Header)
	wroteHeader bool
}

func (w *responseWriter) flushHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.onHeader != nil {
		w.onHeader(w.Header())
	}
}

func (w *responseWriter) WriteHeader(code int) {
	w.flushHeader()
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.flushHeader()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
