package product

import (
	"context"
	"errors"
	"time"

	"github.com/wichananm65/storefront/internal/logging"
	"github.com/wichananm65/storefront/internal/querycache"
)

// ListKey is the cache key of the product list.
const ListKey = "productlist"

// Source is the remote side of the product pages.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, token string, d Draft) error
	UpdateProduct(ctx context.Context, token, id string, d Draft) error
}

type Service struct {
	source     Source
	cache      *querycache.Client[[]Product]
	renderWait time.Duration
	log        logging.Logger
}

// NewService binds the product list to cache under ListKey. renderWait
// bounds how long a page render waits for a running fetch.
func NewService(source Source, cache *querycache.Client[[]Product], renderWait time.Duration, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	cache.Register(ListKey, source.ListProducts)
	return &Service{
		source:     source,
		cache:      cache,
		renderWait: renderWait,
		log:        log.With("component", "product"),
	}
}

// Warm seeds the list from the persisted snapshot, if any.
func (s *Service) Warm(ctx context.Context) error {
	return s.cache.Restore(ctx, ListKey)
}

// List returns the product list, waiting at most the render wait for a
// running fetch. The result may still be pending.
func (s *Service) List(ctx context.Context) querycache.Result[[]Product] {
	ctx, cancel := s.waitContext(ctx)
	defer cancel()
	res, err := s.cache.Wait(ctx, ListKey)
	s.logWait(ctx, err)
	return res
}

// Refetch forces a new fetch of the list and waits like List.
func (s *Service) Refetch(ctx context.Context) querycache.Result[[]Product] {
	ctx, cancel := s.waitContext(ctx)
	defer cancel()
	res, err := s.cache.Refetch(ctx, ListKey)
	s.logWait(ctx, err)
	return res
}

// GetByID looks id up in the current list. The cached snapshot is used as
// is when there is one; otherwise it waits like List.
func (s *Service) GetByID(ctx context.Context, id string) (Product, error) {
	res, _ := s.cache.Peek(ListKey)
	if !res.HasData {
		res = s.List(ctx)
	}
	for _, p := range res.Data {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// Create sends d to the remote API and refreshes the list.
func (s *Service) Create(ctx context.Context, token string, d Draft) error {
	if err := s.source.CreateProduct(ctx, token, d); err != nil {
		return err
	}
	s.Refetch(ctx)
	return nil
}

// Update replaces product id with d and refreshes the list.
func (s *Service) Update(ctx context.Context, token, id string, d Draft) error {
	if err := s.source.UpdateProduct(ctx, token, id, d); err != nil {
		return err
	}
	s.Refetch(ctx)
	return nil
}

func (s *Service) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.renderWait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.renderWait)
}

func (s *Service) logWait(ctx context.Context, err error) {
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.Debug(ctx, "product list still loading")
	default:
		s.log.Error(ctx, "product list", "error", err)
	}
}
