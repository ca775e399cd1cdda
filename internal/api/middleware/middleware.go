// Package middleware holds the gin handlers shared by every authenticated API module.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// OwnerHeader carries the caller's identity. It is trusted as given
	OwnerHeader = "X-Owner-ID"

	ownerKey = "owner"
)

// APIKey checks the X-API-KEY header against API_KEY
func APIKey(cfg *utils.Config) (gin.HandlerFunc, error) {
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY not set in environment")
	}

	return api_key.APIKeyHeaderHandler(func(key string) bool {
		return apiKey == key
	}), nil
}

// Owner rejects requests without an owner header and stores the owner on the context
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Missing "+OwnerHeader+" header", nil).AsGinResponse())
			return
		}

		c.Set(ownerKey, owner)
		c.Next()
	}
}

// OwnerID returns the owner stored by Owner
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// Logger logs one line per request through logrus
func Logger(logger logrus.FieldLogger) gin.HandlerFunc {
	log := utils.Component(logger, "api")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if owner := OwnerID(c); owner != "" {
			entry = entry.WithField("owner", owner)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
