package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"accai/internal/fpchange/faults"
	"accai/internal/fpchange/models"
)

// ErrUnknownProduct is wrapped by faults returned for products with no dispatcher.
var ErrUnknownProduct = errors.New("no dispatcher registered for product")

// Resolver maps product codes onto their dispatcher through a fixed table.
type Resolver struct {
	dispatchers map[models.Product]Dispatcher
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{dispatchers: make(map[models.Product]Dispatcher)}
}

// Register binds a dispatcher to a product. Each product binds once.
func (r *Resolver) Register(product models.Product, d Dispatcher) error {
	if d == nil {
		return fmt.Errorf("dispatcher for %s is nil", product)
	}
	if _, ok := models.ParseProduct(product.String()); !ok {
		return fmt.Errorf("product %q is not a known product", product)
	}
	if _, exists := r.dispatchers[product]; exists {
		return fmt.Errorf("dispatcher for %s already registered", product)
	}
	r.dispatchers[product] = d
	return nil
}

// Resolve returns the dispatcher for code, matched case-insensitively.
// Unknown or unregistered products yield a KindUnresolvedProduct fault.
func (r *Resolver) Resolve(code string) (Dispatcher, error) {
	product, ok := models.ParseProduct(code)
	if ok {
		if d, found := r.dispatchers[product]; found {
			return d, nil
		}
	}
	return nil, faults.New(faults.KindUnresolvedProduct, strings.TrimSpace(code), ErrUnknownProduct)
}

// Products lists the products with a registered dispatcher.
func (r *Resolver) Products() []models.Product {
	out := make([]models.Product, 0, len(r.dispatchers))
	for p := range r.dispatchers {
		out = append(out, p)
	}
	return out
}
