package product

import (
	"context"
	"sync"
)

type fakeSource struct {
	mu       sync.Mutex
	products []Product
	listErr  error
	writeErr error
	block    chan struct{}
	lists    int
	created  []Draft
	updated  map[string]Draft
	tokens   []string
}

func newFakeSource(products ...Product) *fakeSource {
	return &fakeSource{products: products, updated: map[string]Draft{}}
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]Product, error) {
	f.mu.Lock()
	block := f.block
	f.lists++
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Product(nil), f.products...), nil
}

func (f *fakeSource) CreateProduct(_ context.Context, token string, d Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.created = append(f.created, d)
	f.products = append(f.products, Product{ID: "new", Name: d.Name, Description: d.Description})
	return nil
}

func (f *fakeSource) UpdateProduct(_ context.Context, token, id string, d Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updated[id] = d
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Name = d.Name
			f.products[i].Description = d.Description
		}
	}
	return nil
}

func (f *fakeSource) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}
