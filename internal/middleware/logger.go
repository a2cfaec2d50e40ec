package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged; they carry patient data.
func Logger(log *logger.Logger) gin.HandlerFunc {
	zl := log.Zerolog()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + redactQuery(raw)
		}
		status := c.Writer.Status()

		event := zl.Info()
		msg := "Request processed"
		switch {
		case status >= 500:
			event, msg = zl.Error(), "Server error"
		case status >= 400:
			event, msg = zl.Warn(), "Client error"
		}

		if userID, ok := UserID(c); ok {
			event = event.Str("user_id", userID.String())
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}

// redactQuery hides the websocket token parameter accepted by Authenticate.
func redactQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	if values.Has("token") {
		values.Set("token", "[redacted]")
	}
	return values.Encode()
}
