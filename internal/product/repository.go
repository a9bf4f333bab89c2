package product

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("product not found")
)

// Repository persists product list snapshots by query key. It satisfies
// querycache.Persister[[]Product].
type Repository interface {
	Save(ctx context.Context, key string, products []Product, at time.Time) error
	Load(ctx context.Context, key string) ([]Product, time.Time, bool, error)
}

type snapshot struct {
	products []Product
	at       time.Time
}

// InMemoryRepository keeps snapshots for the life of the process. It is
// useful for tests and for running without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]snapshot
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{storage: make(map[string]snapshot)}
}

func (r *InMemoryRepository) Save(_ context.Context, key string, products []Product, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[key] = snapshot{products: cloneProducts(products), at: at}
	return nil
}

func (r *InMemoryRepository) Load(_ context.Context, key string) ([]Product, time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.storage[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return cloneProducts(s.products), s.at, true, nil
}

func cloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	for i, p := range in {
		if p.Images != nil {
			p.Images = append([]string(nil), p.Images...)
		}
		out[i] = p
	}
	return out
}
