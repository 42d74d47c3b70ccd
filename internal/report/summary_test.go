package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/model"
)

type fakeBackend struct {
	from, to time.Time
	err      error
}

func (f *fakeBackend) BranchDashboard(_ context.Context, _ model.Int, from, to time.Time) (model.BranchDashboard, error) {
	f.from, f.to = from, to
	return model.BranchDashboard{OrderStats: map[string]model.Int{"total": 4, "Entregado": 1}}, f.err
}

func (f *fakeBackend) DriverDashboard(context.Context, model.Int) (model.DriverDashboard, error) {
	return model.DriverDashboard{OrderStates: map[string]model.Amount{"Entregado": 3}}, f.err
}

func (f *fakeBackend) DriverReport(context.Context, model.Int, model.ReportRange) ([]model.DriverReportRow, error) {
	return rows, f.err
}

func TestSummarizeByRole(t *testing.T) {
	day := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

	b := &fakeBackend{}
	s, err := Summarize(context.Background(), b, model.Session{Role: model.RoleBranch}, day)
	require.NoError(t, err)
	assert.Equal(t, auth.DashboardBranch, s.Dashboard)
	require.NotNil(t, s.Branch)
	assert.Equal(t, 25.0, s.Branch.DeliveryRate)
	assert.Equal(t, day, b.from)
	assert.Equal(t, "2026-03-04", s.Day)

	s, err = Summarize(context.Background(), b, model.Session{Role: model.RoleCourier}, day)
	require.NoError(t, err)
	require.NotNil(t, s.Driver)
	assert.Equal(t, int64(3), s.Driver.Delivered)

	s, err = Summarize(context.Background(), b, model.Session{Role: model.RoleAdmin}, day)
	require.NoError(t, err)
	require.NotNil(t, s.Drivers)
	assert.Equal(t, int64(8), s.Drivers.Orders)

	_, err = Summarize(context.Background(), b, model.Session{Role: 7}, day)
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
}

func TestSummarizePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Summarize(context.Background(), &fakeBackend{err: boom}, model.Session{Role: model.RoleDriver}, time.Now())
	assert.ErrorIs(t, err, boom)
}
