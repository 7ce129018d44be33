package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	startedAt time.Time
	version   string
}

func NewHealthController(version string) *HealthController {
	return &HealthController{startedAt: time.Now(), version: version}
}

func (ctrl *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": ctrl.version,
		"uptime":  time.Since(ctrl.startedAt).String(),
	})
}
