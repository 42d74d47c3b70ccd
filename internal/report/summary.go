package report

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/model"
)

type Backend interface {
	BranchDashboard(ctx context.Context, userID model.Int, from, to time.Time) (model.BranchDashboard, error)
	DriverDashboard(ctx context.Context, userID model.Int) (model.DriverDashboard, error)
	DriverReport(ctx context.Context, userID model.Int, r model.ReportRange) ([]model.DriverReportRow, error)
}

// Summary is the headline data of a dashboard. Exactly one of the
// pointers is set, matching Dashboard.
type Summary struct {
	Dashboard auth.Dashboard `json:"dashboard"`
	Day       string         `json:"dia"`
	Branch    *BranchStats   `json:"sucursal,omitempty"`
	Driver    *DriverStats   `json:"conductor,omitempty"`
	Drivers   *Totals        `json:"repartidores,omitempty"`
}

// Summarize loads the dashboard for the session's role for a single day.
func Summarize(ctx context.Context, b Backend, sess model.Session, day time.Time) (Summary, error) {
	dash, ok := auth.DashboardOf(sess.Role)
	if !ok {
		return Summary{}, fmt.Errorf("role %d: %w", sess.Role, auth.ErrUnknownRole)
	}
	s := Summary{Dashboard: dash, Day: day.Format(time.DateOnly)}

	switch dash {
	case auth.DashboardBranch:
		d, err := b.BranchDashboard(ctx, sess.UserID, day, day)
		if err != nil {
			return Summary{}, fmt.Errorf("branch dashboard: %w", err)
		}
		stats := Branch(d)
		s.Branch = &stats
	case auth.DashboardDriver:
		d, err := b.DriverDashboard(ctx, sess.UserID)
		if err != nil {
			return Summary{}, fmt.Errorf("driver dashboard: %w", err)
		}
		stats := Driver(d)
		s.Driver = &stats
	case auth.DashboardAdmin:
		rows, err := b.DriverReport(ctx, sess.UserID, model.ReportRange{Kind: model.RangeToday})
		if err != nil {
			return Summary{}, fmt.Errorf("driver report: %w", err)
		}
		totals := Sum(rows)
		s.Drivers = &totals
	}
	return s, nil
}
