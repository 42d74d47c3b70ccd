package api

import (
	"context"

	"github.com/dukerupert/envios/internal/model"
)

// Inventory lists the products visible to the session.
func (c *Client) Inventory(ctx context.Context) ([]model.Product, error) {
	return getCollection[model.Product](ctx, c, "/api/inventarios", nil)
}
