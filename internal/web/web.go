// Package web holds the storefront's HTML templates.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/wichananm65/storefront/internal/session"
)

// Layout wraps every page.
const Layout = "layout"

//go:embed templates/*.html
var templates embed.FS

// NewEngine returns a fiber view engine over the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("fieldError", lookup)
	engine.AddFunc("fieldValue", lookup)
	return engine
}

func lookup(m map[string]string, key string) string {
	return m[key]
}

// Page returns data with the fields the layout reads: Title and, for a
// signed-in caller, User.
func Page(c *fiber.Ctx, title string, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	if s := session.From(c); s.Authenticated() {
		user := s.Name()
		if user == "" {
			user = "Signed in"
		}
		data["User"] = user
	}
	return data
}
