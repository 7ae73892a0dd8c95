package admin

/**  管理接口的访问日志和panic恢复
  *  @author tryao
  *  @date 2022/03/22 14:50
**/

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"syscall"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/errs"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// AccessLogHandler 访问日志，skipPath里的路径不打印
// 5xx打warn，4xx打info，其余debug
func AccessLogHandler(logger log.Logger, skipPath ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		if lo.Contains(skipPath, path) {
			return
		}
		status := c.Writer.Status()
		l := logger.With(log.Fields{
			"method": c.Request.Method,
			"path":   path,
			"status": status,
			"ip":     c.ClientIP(),
			"cost":   time.Since(start),
		})
		switch {
		case len(c.Errors) > 0:
			l.Warn("request failed: %s", c.Errors.String())
		case status >= http.StatusInternalServerError:
			l.Warn("server error")
		case status >= http.StatusBadRequest:
			l.Info("client error")
		default:
			l.Debug("ok")
		}
	}
}

// RecoveryHandler handler panic时返回500，对端已经断开时只记录
func RecoveryHandler(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && peerGone(err) {
				logger.Warn("peer gone while serving %s: %v", c.Request.URL.Path, err)
				c.Abort()
				return
			}
			req, _ := httputil.DumpRequest(c.Request, false)
			log.PanicStack(logger, "admin panic, request: "+string(req), r)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				&errs.Error{Status: errs.UnknownError, Msg: "internal error"})
		}()
		c.Next()
	}
}

func peerGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
