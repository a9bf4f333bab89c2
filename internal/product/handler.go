package product

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront/internal/form"
	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/session"
	"github.com/wichananm65/storefront/internal/web"
)

// loadingRefresh is the loading page's meta refresh, in seconds.
const loadingRefresh = 2

type Handler struct {
	service   *Service
	gate      *form.Gate
	imageBase string
	log       logging.Logger
}

func NewHandler(service *Service, gate *form.Gate, imageBase string, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{service: service, gate: gate, imageBase: imageBase, log: log}
}

// RegisterPublicRoutes registers the pages the route guard leaves open.
func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/editproduct/:id", h.editForm)
	app.Post("/editproduct/:id", h.updateProduct)
}

// RegisterProtectedRoutes registers the pages behind the route guard.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/", h.getProducts)
	app.Get("/product", h.getProducts)
	app.Get("/addproduct", h.addForm)
	app.Post("/addproduct", h.createProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	res := h.service.List(c.UserContext())
	if res.Pending() && !res.HasData {
		return c.Render("loading", web.Page(c, "Products", fiber.Map{"Refresh": loadingRefresh}), web.Layout)
	}

	listing := NewListing(res.Data, c.Query("q"), c.QueryInt("show", PageIncrement))
	data := fiber.Map{
		"Listing": listing,
		"Cards":   Cards(listing.Items, h.imageBase),
		"Failed":  res.Failed(),
		"Stale":   res.Pending(),
	}
	if listing.HasMore {
		data["MoreURL"] = moreURL(c.Path(), listing)
	}
	return c.Render("products", web.Page(c, "Products", data), web.Layout)
}

func moreURL(path string, l Listing) string {
	q := url.Values{}
	if l.Search != "" {
		q.Set("q", l.Search)
	}
	q.Set("show", strconv.Itoa(LoadMore(l.Window)))
	return path + "?" + q.Encode()
}

func (h *Handler) addForm(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, "/addproduct", "Add product", form.NewID(), nil, nil, "")
}

func (h *Handler) editForm(c *fiber.Ctx) error {
	p, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.notFound(c, err)
	}
	return h.renderForm(c, fiber.StatusOK, "/editproduct/"+p.ID, "Edit product", form.NewID(), p.Values(), nil, "")
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	return h.submit(c, "/addproduct", "Add product", func(d Draft) error {
		return h.service.Create(c.UserContext(), session.From(c).Token(), d)
	})
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	return h.submit(c, "/editproduct/"+id, "Edit product", func(d Draft) error {
		return h.service.Update(c.UserContext(), session.From(c).Token(), id, d)
	})
}

// submit runs one product form submission: gate, validate, send, redirect.
func (h *Handler) submit(c *fiber.Ctx, action, title string, send func(Draft) error) error {
	formID := c.FormValue("form_id")
	release, ok := h.gate.Enter(form.SubmissionKey(formID, action, session.From(c).Token()))
	if !ok {
		return c.Status(fiber.StatusConflict).Render("busy", web.Page(c, "Please wait...", nil), web.Layout)
	}
	defer release()

	values := map[string]string{
		"p_name":        c.FormValue("p_name"),
		"p_description": c.FormValue("p_description"),
	}
	if errs := DraftSchema.Validate(values); len(errs) > 0 {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, action, title, formID, values, errs, "")
	}

	draft := DraftFromValues(values)
	images, err := form.Attachments(c, "image")
	if err != nil {
		return h.renderForm(c, fiber.StatusBadRequest, action, title, formID, values, nil, "The uploaded images could not be read.")
	}
	draft.Images = images

	if err := send(draft); err != nil {
		h.log.Warn(c.UserContext(), "product submission failed", "action", action, "error", err)
		return h.renderForm(c, fiber.StatusBadGateway, action, title, formID, values, nil, "The product could not be saved. Please try again.")
	}
	return c.Redirect("/product", fiber.StatusSeeOther)
}

func (h *Handler) renderForm(c *fiber.Ctx, status int, action, title, formID string, values map[string]string, errs form.Errors, notice string) error {
	if values == nil {
		values = map[string]string{}
	}
	return c.Status(status).Render("product_form", web.Page(c, title, fiber.Map{
		"Action": action,
		"FormID": formID,
		"Values": values,
		"Errors": errs,
		"Notice": notice,
	}), web.Layout)
}

func (h *Handler) notFound(c *fiber.Ctx, err error) error {
	msg := ""
	if errors.Is(err, ErrNotFound) {
		msg = "Product not found"
	}
	return c.Status(fiber.StatusNotFound).Render("not_found", web.Page(c, "Not found", fiber.Map{"Message": msg}), web.Layout)
}
