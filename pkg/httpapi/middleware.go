package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-identity/sso-broker/pkg/core"
)

// corsMiddleware is an optimized CORS handler for Gin.
// It merges allowed headers with defaults and sets standard options.
func corsMiddleware(allowedHeaders ...string) gin.HandlerFunc {
	defaultHeaders := []string{"Authorization", "Content-Type", "Cookie"}
	headers := make([]string, 0, len(defaultHeaders)+len(allowedHeaders))
	headers = append(headers, defaultHeaders...)
	for _, h := range allowedHeaders {
		h = strings.TrimSpace(h)
		if h != "" && h != "*" && !containsCI(headers, h) {
			headers = append(headers, h)
		}
	}

	allowedMethods := []string{"GET", "POST", "OPTIONS"}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
		c.Header("Access-Control-Allow-Headers", strings.Join(headers, ", "))
		c.Header("Access-Control-Max-Age", "86400")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// requestBudget attaches a request ID and a deadline to each request's context.
func requestBudget(budget time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := core.WithRequestID(c.Request.Context())
		ctx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// containsCI checks if slice contains item (case-insensitive).
func containsCI(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
