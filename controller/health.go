package controller

import (
	"log/slog"
	"net/http"

	"todo-agent-backend/dao"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	sqlDB, err := dao.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		slog.Error("Database ping failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
