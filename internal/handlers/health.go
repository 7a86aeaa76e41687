package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stockledger-service",
	})
}

// ExtendedHealthCheck returns detailed health status including the database
// and the optional Redis cache.
func (h *LedgerHandler) ExtendedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":  "healthy",
		"service": "stockledger-service",
		"checks":  gin.H{},
	}

	checks := health["checks"].(gin.H)

	if err := h.store.DBHealth(ctx); err != nil {
		checks["database"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = gin.H{
			"status": "healthy",
		}
	}

	if err := h.store.RedisHealth(ctx); err != nil {
		checks["redis"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["redis"] = gin.H{
			"status": "healthy",
		}
	}

	// The database is required; the cache is not.
	if db, ok := checks["database"].(gin.H); ok && db["status"] == "unhealthy" {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}
