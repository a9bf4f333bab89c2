// Package apiclient talks to the remote storefront API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront/internal/form"
	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/product"
	"github.com/wichananm65/storefront/internal/user"
)

var (
	// ErrMalformedResponse means the body did not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRejected means the API answered with success=false.
	ErrRejected = errors.New("request rejected")
	// ErrUnexpectedStatus means the API answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

type Client struct {
	baseURL string
	timeout time.Duration
	log     logging.Logger
}

func New(baseURL string, timeout time.Duration, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		log:     log.With("component", "apiclient"),
	}
}

// ListProducts fetches the full product list. The body is either a JSON
// array or an object with the array under "data".
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	a := fiber.Get(c.baseURL + "/productlist")
	body, err := c.do(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := decodeProducts(body)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Register submits a registration as one multipart payload. It returns nil
// only when the API reports success.
func (c *Client) Register(ctx context.Context, r user.Registration) error {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("name", r.Name)
	args.Set("email", r.Email)
	args.Set("phone", r.Phone)
	args.Set("password", r.Password)
	args.Set("confirmPassword", r.ConfirmPassword)

	a := fiber.Post(c.baseURL + "/register")
	if r.ProfilePic != nil {
		a.FileData(formFile("profile_pic", *r.ProfilePic))
	}
	a.MultipartForm(args)

	body, err := c.do(ctx, a)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := checkSuccess(body); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	a := fiber.Post(c.baseURL + "/login")
	a.JSON(map[string]string{"email": email, "password": password})

	body, err := c.do(ctx, a)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("login: %w", ErrMalformedResponse)
	}
	if resp.success() == falseFlag {
		return "", fmt.Errorf("login: %w", ErrRejected)
	}
	tok := resp.token()
	if tok == "" {
		return "", fmt.Errorf("login: %w", ErrMalformedResponse)
	}
	return tok, nil
}

// CreateProduct posts a new product on behalf of the session token.
func (c *Client) CreateProduct(ctx context.Context, token string, d product.Draft) error {
	if err := c.sendDraft(ctx, c.baseURL+"/createproduct", token, d); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces the product with the given id.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, d product.Draft) error {
	if err := c.sendDraft(ctx, c.baseURL+"/updateproduct/"+id, token, d); err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	return nil
}

func (c *Client) sendDraft(ctx context.Context, url, token string, d product.Draft) error {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("p_name", d.Name)
	args.Set("p_description", d.Description)

	a := fiber.Post(url)
	if token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for _, img := range d.Images {
		a.FileData(formFile("image", img))
	}
	a.MultipartForm(args)

	body, err := c.do(ctx, a)
	if err != nil {
		return err
	}
	return checkSuccess(body)
}

// do sends a and returns the body of a 2xx response. The agent is released.
func (c *Client) do(ctx context.Context, a *fiber.Agent) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t := c.effectiveTimeout(ctx); t > 0 {
		a.Timeout(t)
	}
	req := a.Request()
	method, uri := string(req.Header.Method()), req.URI().String()

	start := time.Now()
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.log.Warn(ctx, "remote call failed", "method", method, "uri", uri, "error", err)
		return nil, err
	}
	c.log.Debug(ctx, "remote call", "method", method, "uri", uri, "status", code, "took", time.Since(start))
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, code)
	}
	return body, nil
}

// effectiveTimeout is the configured timeout, shortened to ctx's deadline.
func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	t := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); t <= 0 || left < t {
			t = left
		}
	}
	return t
}

func formFile(field string, a form.Attachment) *fiber.FormFile {
	return &fiber.FormFile{Fieldname: field, Name: a.Filename, Content: a.Content}
}
