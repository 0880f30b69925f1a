package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// getClientIP identifies the caller for rate limiting and audit logs.
// Forwarding headers are only honoured through gin's trusted proxy list, so
// an operator cannot dodge the limiter by sending X-Forwarded-For.
func getClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(c.Request.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
