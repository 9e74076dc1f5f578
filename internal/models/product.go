package models

import (
	"log/slog"
	"slices"
)

// Product is an item in the demo catalogue. Price is in yen.
type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
}

// ProductStore is a read-only source of products
type ProductStore interface {
	List() []Product
	GetByID(id int) (Product, bool)
	ByCategory(category string) []Product
}

// DefaultProducts returns the fixture products.
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "ノートPC", Price: 120000, Category: "電子機器", Stock: 15},
		{ID: 2, Name: "マウス", Price: 2500, Category: "周辺機器", Stock: 50},
		{ID: 3, Name: "キーボード", Price: 8000, Category: "周辺機器", Stock: 30},
		{ID: 4, Name: "モニター", Price: 35000, Category: "電子機器", Stock: 20},
		{ID: 5, Name: "Webカメラ", Price: 5500, Category: "周辺機器", Stock: 25},
	}
}

// MemoryProductStore serves products from an immutable in-memory slice
type MemoryProductStore struct {
	products []Product
	logger   *slog.Logger
}

// NewProductStore copies products into a new store. A nil logger disables query logs.
func NewProductStore(products []Product, logger *slog.Logger) *MemoryProductStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemoryProductStore{products: slices.Clone(products), logger: logger}
}

// List returns every product. The slice is a copy.
func (s *MemoryProductStore) List() []Product {
	s.logger.Debug("Model query", "model", "product", "op", "list")
	return slices.Clone(s.products)
}

// GetByID returns the product with the given ID
func (s *MemoryProductStore) GetByID(id int) (Product, bool) {
	s.logger.Debug("Model query", "model", "product", "op", "get", "id", id)
	i := slices.IndexFunc(s.products, func(p Product) bool { return p.ID == id })
	if i < 0 {
		return Product{}, false
	}
	return s.products[i], true
}

// ByCategory returns the products in a category, in fixture order
func (s *MemoryProductStore) ByCategory(category string) []Product {
	s.logger.Debug("Model query", "model", "product", "op", "by_category", "category", category)
	out := []Product{}
	for _, p := range s.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
