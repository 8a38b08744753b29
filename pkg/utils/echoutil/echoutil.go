package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request line and its response status + latency.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Infof("< request %s %s", meth, path)

		var err error
		defer func() {
			c.Logger().Infof(
				"> response status = %d (for %s %s) in %v / error = %v",
				c.Response().Status, meth, path, time.Since(begin), err,
			)
		}()

		err = next(c)
		return err
	}
}

// SetLevel maps a loglevel name onto echo's logger.
// Unknown names fall back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
