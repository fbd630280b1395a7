package middleware

import "net/http"

// StreamingResponseWriter records status and byte counts without breaking
// http.Flusher. Most of this service's traffic is SSE, and a wrapper that
// swallows Flush would buffer every token until the stream ends.
type StreamingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
}

func NewStreamingResponseWriter(w http.ResponseWriter) *StreamingResponseWriter {
	return &StreamingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code. Repeat calls are dropped, matching
// net/http's own superfluous-WriteHeader handling.
func (w *StreamingResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *StreamingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so SSE handlers can push each
// event as it is produced.
func (w *StreamingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// StatusCode returns the captured status code, 200 if none was written.
func (w *StreamingResponseWriter) StatusCode() int {
	return w.statusCode
}

// BytesWritten returns the response body size so far.
func (w *StreamingResponseWriter) BytesWritten() int64 {
	return w.bytesWritten
}

// Unwrap exposes the underlying writer for http.ResponseController.
func (w *StreamingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
