// internal/domain/product/repository.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProductNotFound is returned when no live product has the requested id
var ErrProductNotFound = errors.New("product not found")

// Repository persists products
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, int64, error)
	FindByID(ctx context.Context, id uint) (*Product, error)
	Create(ctx context.Context, p *Product) error
	// Update writes only the supplied columns and returns the stored product.
	Update(ctx context.Context, id uint, changes Changes) (*Product, error)
	// Delete soft-deletes the product and drops it from every cart.
	Delete(ctx context.Context, id uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed product repository
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *gormRepository) List(ctx context.Context, filter Filter) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := r.db.WithContext(ctx).Model(&Product{})

	if filter.Search != "" {
		search := "%" + strings.ToLower(likeEscaper.Replace(filter.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}

	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	err := query.Order("created_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return products, total, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) Create(ctx context.Context, p *Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, id uint, changes Changes) (*Product, error) {
	var updated Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so a concurrent checkout decrement is never overwritten.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		cols := changes.Columns()
		if len(cols) == 0 {
			return nil
		}

		if err := tx.Model(&updated).Updates(cols).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to remove product from carts: %w", err)
		}

		result := tx.Delete(&Product{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}
