// Package guard decides whether a navigation to a protected page may proceed.
package guard

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront/internal/session"
)

// Decision is the outcome of a guard check. A zero RedirectTo means continue.
type Decision struct {
	RedirectTo string
}

// Continue reports whether the request may reach its handler.
func (d Decision) Continue() bool { return d.RedirectTo == "" }

// Guard holds the protected path set and the login target.
type Guard struct {
	protected map[string]struct{}
	loginPath string
}

func New(protectedPaths []string, loginPath string) *Guard {
	g := &Guard{
		protected: make(map[string]struct{}, len(protectedPaths)),
		loginPath: loginPath,
	}
	for _, p := range protectedPaths {
		g.protected[normalize(p)] = struct{}{}
	}
	return g
}

// Decide returns a redirect to the login path when path is protected and no
// token is present. Presence is the only signal; tokens are not validated.
func (g *Guard) Decide(path string, hasToken bool) Decision {
	if hasToken {
		return Decision{}
	}
	if _, ok := g.protected[normalize(path)]; !ok {
		return Decision{}
	}
	return Decision{RedirectTo: g.loginPath}
}

// Middleware applies g to every request. It expects session.Middleware to
// have run first.
func Middleware(g *Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := g.Decide(c.Path(), session.From(c).Authenticated())
		if !d.Continue() {
			return c.Redirect(d.RedirectTo, fiber.StatusFound)
		}
		return c.Next()
	}
}

// normalize lower-cases p and strips one trailing slash, so "/Product/" is
// treated as "/product".
func normalize(p string) string {
	p = strings.ToLower(p)
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return strings.TrimSuffix(p, "/")
	}
	return p
}
