package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// TrustProxies limits which peers may set the client IP through forwarding
// headers. With no proxies, X-Forwarded-For and X-Real-IP are ignored and the
// socket address is used. platform "cloudflare" trusts CF-Connecting-IP.
func TrustProxies(engine *gin.Engine, proxies []string, platform string) error {
	if len(proxies) == 0 {
		proxies = nil
	}
	if err := engine.SetTrustedProxies(proxies); err != nil {
		return err
	}
	if strings.EqualFold(platform, "cloudflare") {
		engine.TrustedPlatform = gin.PlatformCloudflare
	}
	return nil
}

// RealIP stores the client IP in the Gin context under "real_ip".
// It is c.ClientIP(), so forwarding headers only count when the engine trusts the peer.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", realIP(c))
		c.Next()
	}
}

func realIP(c *gin.Context) string {
	if ip := net.ParseIP(strings.TrimSpace(c.ClientIP())); ip != nil {
		return ip.String()
	}
	return ""
}
