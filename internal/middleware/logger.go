package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request after it has been
// handled.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let echo write the error response so the status is final
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     res.Status,
				"duration":   time.Since(start),
				"client_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
			})
			if uid := c.Get("user_id"); uid != nil {
				entry = entry.WithField("user_id", uid)
			}

			switch {
			case res.Status >= 500:
				entry.Error("request failed")
			case res.Status >= 400:
				entry.Warn("request refused")
			default:
				entry.Info("request processed")
			}
			return nil
		}
	}
}
