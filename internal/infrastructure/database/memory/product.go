// internal/infrastructure/database/memory/product.go
package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/your-org/storefront-api/internal/domain/product"
	"gorm.io/gorm"
)

type productRepo struct {
	db *DB
}

func (r *productRepo) List(_ context.Context, filter product.Filter) ([]product.Product, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	search := strings.ToLower(filter.Search)
	matched := make([]product.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		if p.DeletedAt.Valid {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (r *productRepo) FindByID(_ context.Context, id uint) (*product.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.liveProduct(id)
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

func (r *productRepo) Create(_ context.Context, p *product.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p.ID = r.db.nextID("products")
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	r.db.products[p.ID] = *p
	return nil
}

func (r *productRepo) Update(_ context.Context, id uint, changes product.Changes) (*product.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.liveProduct(id)
	if !ok {
		return nil, product.ErrProductNotFound
	}

	changes.Apply(p)
	p.UpdatedAt = now()
	r.db.products[id] = *p
	return p, nil
}

func (r *productRepo) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.liveProduct(id)
	if !ok {
		return product.ErrProductNotFound
	}

	for itemID, item := range r.db.cartItems {
		if item.ProductID == id {
			delete(r.db.cartItems, itemID)
		}
	}

	p.DeletedAt = gorm.DeletedAt{Time: now(), Valid: true}
	r.db.products[id] = *p
	return nil
}
