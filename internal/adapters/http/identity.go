package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerIdentity extracts the key that limits callers to one container.
type CallerIdentity func(c *fiber.Ctx) string

// RemoteAddr identifies callers by the connection's remote address.
func RemoteAddr() CallerIdentity {
	return func(c *fiber.Ctx) string {
		return c.IP()
	}
}

// ForwardedHeader identifies callers by the first address in a header set by
// a trusted reverse proxy, falling back to the remote address.
func ForwardedHeader(name string) CallerIdentity {
	return func(c *fiber.Ctx) string {
		first, _, _ := strings.Cut(c.Get(name), ",")
		if v := strings.TrimSpace(first); v != "" {
			return v
		}
		return c.IP()
	}
}
