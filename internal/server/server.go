// Package server assembles the storefront's fiber application.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/wichananm65/storefront/internal/config"
	"github.com/wichananm65/storefront/internal/form"
	"github.com/wichananm65/storefront/internal/guard"
	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/product"
	"github.com/wichananm65/storefront/internal/querycache"
	"github.com/wichananm65/storefront/internal/session"
	"github.com/wichananm65/storefront/internal/user"
	"github.com/wichananm65/storefront/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Remote is everything the storefront needs from the remote API.
type Remote interface {
	product.Source
	user.Registrar
	user.Authenticator
}

type Server struct {
	app      *fiber.App
	cfg      config.Config
	log      logging.Logger
	cache    *querycache.Client[[]product.Product]
	products *product.Service
}

// New wires the application. snapshots may be nil, in which case product
// lists are kept in memory only.
func New(cfg config.Config, log logging.Logger, remote Remote, snapshots product.Repository) *Server {
	if log == nil {
		log = logging.Nop()
	}

	var persister querycache.Persister[[]product.Product]
	if snapshots != nil {
		persister = snapshots
	}

	cache := querycache.New[[]product.Product](querycache.Options{
		StaleTime:    cfg.StaleTime,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       log.With("component", "querycache"),
	}, persister)

	gate := form.NewGate()
	products := product.NewService(remote, cache, cfg.RenderWait, log)
	pipeline := user.NewPipeline(remote, gate, cfg.LoginPath, cfg.RegisterPath, log)

	app := fiber.New(fiber.Config{
		AppName:               "storefront",
		CaseSensitive:         true,
		Views:                 web.NewEngine(),
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	setupCORS(app, cfg.AllowOrigins)
	app.Use(requestLogger(log))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Use(session.Middleware(cfg.TokenCookie))
	app.Use(guard.Middleware(guard.New(cfg.ProtectedPaths, cfg.LoginPath)))

	productHandler := product.NewHandler(products, gate, cfg.ImageBaseURL, log)
	productHandler.RegisterPublicRoutes(app)
	productHandler.RegisterProtectedRoutes(app)

	userHandler := user.NewHandler(
		user.NewService(pipeline, remote),
		session.NewWriter(cfg.TokenCookie, cfg.SessionTTL),
		cfg.LoginPath, "/product", log,
	)
	userHandler.RegisterPublicRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("not_found", web.Page(c, "Not found", nil), web.Layout)
	})

	return &Server{app: app, cfg: cfg, log: log, cache: cache, products: products}
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Warm restores the last persisted product list so the first page view does
// not wait on the remote API.
func (s *Server) Warm(ctx context.Context) {
	if err := s.products.Warm(ctx); err != nil {
		s.log.Warn(ctx, "warm product list", "error", err)
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		s.cache.Close()
		return err
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down")
	err := s.app.ShutdownWithTimeout(shutdownTimeout)
	s.cache.Close()
	if lerr := <-errCh; lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// requestLogger logs one line per request.
func requestLogger(log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		log.Info(c.UserContext(), "request",
			"method", c.Method(),
			"url", c.OriginalURL(),
			"status", status,
			"took", time.Since(start),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}

func errorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := fiber.StatusInternalServerError, fiber.ErrInternalServerError.Message
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed", "url", c.OriginalURL(), "error", err)
		}
		return c.Status(code).SendString(msg)
	}
}
