package user

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront/internal/form"
	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/session"
	"github.com/wichananm65/storefront/internal/web"
)

type Handler struct {
	service   *Service
	sessions  session.Writer
	loginPath string
	homePath  string
	log       logging.Logger
}

func NewHandler(service *Service, sessions session.Writer, loginPath, homePath string, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{service: service, sessions: sessions, loginPath: loginPath, homePath: homePath, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/register", h.registerForm)
	app.Post("/register", h.register)
	app.Get("/login", h.loginForm)
	app.Post("/login", h.login)
	app.Post("/logout", h.logout)
}

func (h *Handler) registerForm(c *fiber.Ctx) error {
	return h.renderRegister(c, fiber.StatusOK, form.NewID(), nil, nil, "")
}

func (h *Handler) register(c *fiber.Ctx) error {
	formID := c.FormValue("form_id")
	reg := Registration{
		Name:            strings.TrimSpace(c.FormValue("name")),
		Email:           strings.TrimSpace(c.FormValue("email")),
		Phone:           strings.TrimSpace(c.FormValue("phone")),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirmPassword"),
	}
	pics, err := form.Attachments(c, "profile_pic")
	if err != nil {
		h.log.Warn(c.UserContext(), "read profile picture", "error", err)
		return h.renderRegister(c, fiber.StatusBadRequest, formID, reg.Redisplay(), nil, "The profile picture could not be read.")
	}
	if len(pics) > 0 {
		reg.ProfilePic = &pics[0]
	}

	out, err := h.service.Register(c.UserContext(), formID, reg)
	if errors.Is(err, form.ErrSubmissionInProgress) {
		return c.Status(fiber.StatusConflict).Render("busy", web.Page(c, "Please wait...", nil), web.Layout)
	}
	if err != nil {
		return err
	}

	switch out.State {
	case ValidationFailed:
		return h.renderRegister(c, fiber.StatusUnprocessableEntity, formID, out.Values, out.Errors, "")
	case Succeeded, Failed:
		return c.Redirect(out.Redirect, fiber.StatusSeeOther)
	default:
		return fiber.ErrInternalServerError
	}
}

func (h *Handler) renderRegister(c *fiber.Ctx, status int, formID string, values map[string]string, errs form.Errors, notice string) error {
	if values == nil {
		values = map[string]string{}
	}
	return c.Status(status).Render("register", web.Page(c, "Register", fiber.Map{
		"FormID": formID,
		"Values": values,
		"Errors": errs,
		"Notice": notice,
	}), web.Layout)
}

func (h *Handler) loginForm(c *fiber.Ctx) error {
	return h.renderLogin(c, fiber.StatusOK, nil, nil, "")
}

func (h *Handler) login(c *fiber.Ctx) error {
	creds := Credentials{
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
	}
	values := map[string]string{"email": creds.Email}

	token, errs, err := h.service.Login(c.UserContext(), creds)
	if len(errs) > 0 {
		return h.renderLogin(c, fiber.StatusUnprocessableEntity, values, errs, "")
	}
	if err != nil {
		h.log.Warn(c.UserContext(), "login failed", "email", creds.Email, "error", err)
		return h.renderLogin(c, fiber.StatusUnauthorized, values, nil, "Invalid email or password")
	}

	h.sessions.Establish(c, token)
	return c.Redirect(h.homePath, fiber.StatusSeeOther)
}

func (h *Handler) renderLogin(c *fiber.Ctx, status int, values map[string]string, errs form.Errors, notice string) error {
	if values == nil {
		values = map[string]string{}
	}
	return c.Status(status).Render("login", web.Page(c, "Login", fiber.Map{
		"Values": values,
		"Errors": errs,
		"Notice": notice,
	}), web.Layout)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	h.sessions.Clear(c)
	return c.Redirect(h.loginPath, fiber.StatusSeeOther)
}
