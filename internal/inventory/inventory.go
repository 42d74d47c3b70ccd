// Package inventory serves the product list from the local cache and
// searches it by name or SKU.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/envios/internal/cache"
	"github.com/dukerupert/envios/internal/kv"
	"github.com/dukerupert/envios/internal/listview"
	"github.com/dukerupert/envios/internal/model"
)

const (
	CacheKey = "inventory"
	PageSize = 10
)

type Source interface {
	Inventory(ctx context.Context) ([]model.Product, error)
}

type Service struct {
	cache  *cache.Cache[model.Product]
	logger *slog.Logger
}

func NewService(src Source, store kv.Store, window time.Duration, logger *slog.Logger) *Service {
	return &Service{
		cache: cache.New(cache.Config[model.Product]{
			Key:    CacheKey,
			Store:  store,
			Fetch:  src.Inventory,
			Window: window,
			Logger: logger,
		}),
		logger: logger,
	}
}

// Cache exposes the underlying cache for event subscription.
func (s *Service) Cache() *cache.Cache[model.Product] {
	return s.cache
}

// Wait lets a background revalidation started by Search finish, bounded
// by ctx.
func (s *Service) Wait(ctx context.Context) error {
	return s.cache.Wait(ctx)
}

func (s *Service) Close() {
	s.cache.Close()
}

// SearchFields is the text a query is matched against.
func SearchFields(p model.Product) []string {
	return []string{p.Name, p.SKU}
}

// Page is one rendering of the inventory list: every match up to and
// including the requested page.
type Page struct {
	Items      []model.Product `json:"items"`
	Query      string          `json:"query"`
	Page       int             `json:"page"`
	Matches    int             `json:"matches"`
	HasMore    bool            `json:"has_more"`
	State      string          `json:"state"`
	UpdatedAt  time.Time       `json:"updated_at,omitzero"`
	Refreshing bool            `json:"refreshing"`
	Error      string          `json:"error,omitempty"`
}

// Search loads the inventory (refreshing first when asked) and filters it.
// A failed refresh still returns the cached products with Error set; the
// error is returned only when there is nothing to show.
func (s *Service) Search(ctx context.Context, query string, page int, refresh bool) (Page, error) {
	var (
		view cache.View[model.Product]
		err  error
	)
	if refresh {
		view, err = s.cache.Refresh(ctx)
		if errors.Is(err, cache.ErrInFlight) {
			err = nil
		}
	} else {
		view, err = s.cache.Load(ctx)
	}
	if err != nil {
		return Page{State: view.State.String(), Error: err.Error()}, err
	}

	list := listview.New(view.Items, PageSize, SearchFields)
	list.SetQuery(query)
	list.SetPage(page)

	p := Page{
		Items:      list.Visible(),
		Query:      query,
		Page:       list.Page(),
		Matches:    list.Len(),
		HasMore:    list.HasMore(),
		State:      view.State.String(),
		UpdatedAt:  view.UpdatedAt,
		Refreshing: view.Refreshing,
	}
	if view.Err != nil {
		p.Error = view.Err.Error()
	}
	return p, nil
}
