package admin

import (
	"net/http"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/YiuTerran/go-director/base/structs/errs"
	"github.com/YiuTerran/go-director/director"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LevelSwitcher 能在运行时切换日志等级的Logger
type LevelSwitcher interface {
	ChangeLogLevel(level log.Level)
}

type handlers struct {
	director *director.Director
	levels   LevelSwitcher
}

// InitRouter 创建一个激活常用配置的router
// extra中间件在日志和recovery之后、路由之前挂载
func InitRouter(d *director.Director, logger log.Logger, gatherer prometheus.Gatherer, levels LevelSwitcher,
	extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(AccessLogHandler(logger, "/metrics", "/health"))
	router.Use(RecoveryHandler(logger))
	router.Use(extra...)

	h := &handlers{director: d, levels: levels}
	router.GET("/health", h.health)
	router.GET("/connections", h.listConnections)
	router.GET("/connections/:id", h.getConnection)
	router.DELETE("/connections/:id", h.kickConnection)
	router.PUT("/log/level", h.changeLogLevel)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(errs.GetHttpStatus(status), &errs.Error{Status: status, Msg: msg})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": h.director.Len()})
}

func (h *handlers) listConnections(c *gin.Context) {
	c.JSON(http.StatusOK, h.director.Sessions())
}

func (h *handlers) getConnection(c *gin.Context) {
	info, ok := h.director.Session(c.Param("id"))
	if !ok {
		fail(c, errs.NotExist, "connection not found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) kickConnection(c *gin.Context) {
	if !h.director.Kick(c.Param("id")) {
		fail(c, errs.NotExist, "connection not found")
		return
	}
	c.Status(http.StatusNoContent)
}

type levelReq struct {
	Level string `json:"level" binding:"required"`
}

func (h *handlers) changeLogLevel(c *gin.Context) {
	if h.levels == nil {
		fail(c, errs.NotAllowed, "log level switch not supported")
		return
	}
	var req levelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ParamError, err.Error())
		return
	}
	level := log.ParseLevel(req.Level)
	h.levels.ChangeLogLevel(level)
	c.JSON(http.StatusOK, gin.H{"level": level})
}
