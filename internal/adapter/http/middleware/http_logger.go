package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// MaxRequestBody bounds what a handler may read from one request.
	MaxRequestBody = 1 << 20
	logBodyLimit   = 4 << 10
)

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwordhash":  {},
	"authorization": {},
	"token":         {},
	"secret":        {},
}

// teeWriter keeps the first logBodyLimit bytes of the response for the log line.
type teeWriter struct {
	gin.ResponseWriter
	kept bytes.Buffer
	over bool
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if room := logBodyLimit - w.kept.Len(); room > 0 {
		if len(b) > room {
			w.kept.Write(b[:room])
			w.over = true
		} else {
			w.kept.Write(b)
		}
	} else if len(b) > 0 {
		w.over = true
	}
	return w.ResponseWriter.Write(b)
}

// loggable renders a JSON body for logs only: secrets masked, numbers kept
// verbatim, output clipped. The caller's bytes are never modified.
func loggable(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Sprintf("<non-json %d bytes>", len(raw))
	}
	out, err := json.Marshal(mask(v))
	if err != nil {
		return fmt.Sprintf("<unprintable %d bytes>", len(raw))
	}
	if len(out) > logBodyLimit {
		return string(out[:logBodyLimit]) + "...truncated..."
	}
	return string(out)
}

func mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if _, hit := sensitiveKeys[strings.ToLower(k)]; hit {
				t[k] = "***redacted***"
				continue
			}
			t[k] = mask(val)
		}
	case []any:
		for i := range t {
			t[i] = mask(t[i])
		}
	}
	return v
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// Logging assigns a request id, injects a request-scoped slog.Logger and logs
// one line per request. Bodies reach handlers byte-for-byte; only the logged
// copy is redacted.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set("X-Request-Id", reqID)
		}
		c.Header("X-Request-Id", reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote", c.ClientIP(),
		)
		logging.With(c, l)

		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw

		var reqLogged string
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBody))
			_ = c.Request.Body.Close()
			switch {
			case err == nil:
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
				if isJSON(c.GetHeader("Content-Type")) {
					reqLogged = loggable(raw)
				}
			case errors.As(err, new(*http.MaxBytesError)):
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
					"status": "error", "error": "invalid_input", "message": "request body too large",
				})
			default:
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"status": "error", "error": "invalid_input", "message": "unreadable request body",
				})
			}
		}

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
		}
		if reqLogged != "" {
			attrs = append(attrs, "req_body", reqLogged)
		}
		if isJSON(c.Writer.Header().Get("Content-Type")) && tw.kept.Len() > 0 {
			resp := loggable(tw.kept.Bytes())
			if tw.over {
				resp = fmt.Sprintf("<%d bytes>", c.Writer.Size())
			}
			attrs = append(attrs, "resp_body", resp)
		}
		if len(c.Params) > 0 {
			attrs = append(attrs, "params", c.Params)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		if status >= http.StatusInternalServerError {
			l.Error("http_request", attrs...)
			return
		}
		if status >= http.StatusBadRequest {
			l.Warn("http_request", attrs...)
			return
		}
		l.Info("http_request", attrs...)
	}
}
