package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request and its response with timing.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Infof("< request @[%s] %s %s", begin, meth, path)

		var err error

		defer func() {
			end := time.Now()
			c.Logger().Infof(
				"> response @[%s] status = %d (for request @[%s] %s %s) in %v / error = %+v",
				end, c.Response().Status, begin, meth, path, end.Sub(begin), err,
			)
		}()

		err = next(c)
		return err
	}
}

// LevelOf maps a loglevel name to gommon's level. Unknown names fall back
// to warn.
func LevelOf(loglevel string) log.Lvl {
	switch strings.ToLower(loglevel) {
	case "debug":
		return log.DEBUG
	case "info":
		return log.INFO
	case "warn", "":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.WARN
}

// SetLevel applies a loglevel name to echo's logger.
func SetLevel(e *echo.Echo, loglevel string) {
	e.Logger.SetLevel(LevelOf(loglevel))
}
