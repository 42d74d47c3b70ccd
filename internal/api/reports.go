package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dukerupert/envios/internal/model"
)

const dateLayout = "2006-01-02"

// BranchDashboard returns order statistics for a branch between two dates.
func (c *Client) BranchDashboard(ctx context.Context, userID model.Int, from, to time.Time) (model.BranchDashboard, error) {
	path := fmt.Sprintf("/api/panel-sucursales/%s/%s/%s", idSegment(userID), from.Format(dateLayout), to.Format(dateLayout))
	var d model.BranchDashboard
	if err := c.getJSON(ctx, path, nil, &d); err != nil {
		return model.BranchDashboard{}, err
	}
	return d, nil
}

// DriverDashboard returns the courier's order counts and daily earnings.
func (c *Client) DriverDashboard(ctx context.Context, userID model.Int) (model.DriverDashboard, error) {
	var d model.DriverDashboard
	if err := c.getJSON(ctx, "/api/panel-conductores/"+idSegment(userID)+"/pedidos", nil, &d); err != nil {
		return model.DriverDashboard{}, err
	}
	return d, nil
}

// DriverReport returns per-courier totals. Custom ranges send both dates;
// other kinds send only the kind.
func (c *Client) DriverReport(ctx context.Context, userID model.Int, r model.ReportRange) ([]model.DriverReportRow, error) {
	kind := r.Kind
	if kind == "" {
		kind = model.RangeToday
	}
	q := url.Values{}
	q.Set("tipo_fecha", kind)
	if kind == model.RangeCustom {
		q.Set("fecha_desde", r.From)
		q.Set("fecha_hasta", r.To)
	}
	return getCollection[model.DriverReportRow](ctx, c, "/api/reporte-repartidores/"+idSegment(userID), q)
}
