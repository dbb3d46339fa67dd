package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl lets clients cache read responses for maxAge. Stored
// curricula never change in place, so their views are safe to reuse until
// the curriculum is deleted. A zero maxAge disables caching.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := "no-store"
	if maxAge > 0 {
		value = fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	}
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
