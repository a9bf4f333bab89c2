// Package session carries the caller's session token through a request.
//
// A Session is read-only. Handlers obtain it with From and never modify it;
// the login and logout flows are the only writers, and they go through Writer.
package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const localsKey = "session"

// Session is the per-request view of the caller's credentials.
type Session struct {
	token  string
	claims jwt.MapClaims
}

// New builds a Session from a raw token. An empty token is anonymous.
func New(token string) Session {
	s := Session{token: token}
	if token == "" {
		return s
	}
	// Claims are decoded for display only; the signature is never checked here.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		s.claims = claims
	}
	return s
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool { return s.token != "" }

func (s Session) Token() string { return s.token }

// Email returns the email claim, if the token carries one.
func (s Session) Email() string { return s.claim("email") }

// Name returns the name claim, falling back to the email claim.
func (s Session) Name() string {
	if n := s.claim("name"); n != "" {
		return n
	}
	return s.Email()
}

func (s Session) claim(key string) string {
	if s.claims == nil {
		return ""
	}
	v, _ := s.claims[key].(string)
	return v
}

// Middleware reads the token cookie and attaches the Session to the request.
func Middleware(cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsKey, New(c.Cookies(cookieName)))
		return c.Next()
	}
}

// From returns the request's Session, or an anonymous one when the
// middleware did not run.
func From(c *fiber.Ctx) Session {
	if s, ok := c.Locals(localsKey).(Session); ok {
		return s
	}
	return Session{}
}

// Writer is the single writer of the session cookie.
type Writer struct {
	cookie string
	ttl    time.Duration
}

func NewWriter(cookieName string, ttl time.Duration) Writer {
	return Writer{cookie: cookieName, ttl: ttl}
}

// Establish stores token in the session cookie.
func (w Writer) Establish(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     w.cookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(w.ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(localsKey, New(token))
}

// Clear removes the session cookie.
func (w Writer) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     w.cookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(localsKey, Session{})
}
