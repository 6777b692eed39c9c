package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
)

var compressibleTypes = map[string]bool{
	"text/html":              true,
	"text/css":               true,
	"text/plain":             true,
	"application/json":       true,
	"application/javascript": true,
}

type compressWriter struct {
	http.ResponseWriter
	acceptsGzip bool
	gz          *gzip.Writer
	wroteHeader bool
}

func (c *compressWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	h := c.Header()
	mediaType, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
	if c.acceptsGzip && compressibleTypes[mediaType] && h.Get("Content-Encoding") == "" &&
		statusCode != http.StatusNoContent && statusCode != http.StatusNotModified {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		h.Add("Vary", "Accept-Encoding")
		c.gz = gzip.NewWriter(c.ResponseWriter)
	}
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.gz != nil {
		return c.gz.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

func (c *compressWriter) Close() error {
	if c.gz != nil {
		return c.gz.Close()
	}
	return nil
}

type compressReader struct {
	r  io.ReadCloser
	gz *gzip.Reader
}

func newCompressReader(r io.ReadCloser) (*compressReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &compressReader{r: r, gz: gz}, nil
}

func (c *compressReader) Read(p []byte) (int, error) {
	return c.gz.Read(p)
}

func (c *compressReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}
	return c.gz.Close()
}

// GzipMiddleware распаковывает тела запросов в gzip и сжимает HTML и JSON
// ответы для клиентов, которые принимают gzip. Запросы на websocket
// пропускаются без изменений.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			cr, err := newCompressReader(r.Body)
			if err != nil {
				http.Error(w, "некорректное сжатое тело запроса", http.StatusBadRequest)
				return
			}
			r.Body = cr
			r.Header.Del("Content-Encoding")
			defer cr.Close()
		}

		cw := &compressWriter{
			ResponseWriter: w,
			acceptsGzip:    strings.Contains(r.Header.Get("Accept-Encoding"), "gzip"),
		}
		defer cw.Close()

		next.ServeHTTP(cw, r)
	})
}
