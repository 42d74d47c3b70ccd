package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	backend report.Backend
	now     func() time.Time
	logger  *slog.Logger
}

func NewDashboardHandler(backend report.Backend, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{backend: backend, now: time.Now, logger: logger}
}

// Summary serves GET /api/dashboard for the logged-in role.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	s, err := report.Summarize(r.Context(), h.backend, sess, h.now())
	if errors.Is(err, auth.ErrUnknownRole) {
		writeError(w, http.StatusForbidden, "role not supported")
		return
	}
	if err != nil {
		writeUpstreamError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type driverReport struct {
	Rows   []model.DriverReportRow `json:"rows"`
	Totals report.Totals           `json:"totals"`
}

// DriverReport serves GET /api/report?tipo=&desde=&hasta=&format=xlsx.
func (h *DashboardHandler) DriverReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng := model.ReportRange{Kind: q.Get("tipo"), From: q.Get("desde"), To: q.Get("hasta")}
	if rng.Kind == "" {
		rng.Kind = model.RangeToday
	}
	if rng.Kind == model.RangeCustom {
		for _, d := range []string{rng.From, rng.To} {
			if _, err := time.Parse(time.DateOnly, d); err != nil {
				writeError(w, http.StatusBadRequest, "desde and hasta must be YYYY-MM-DD")
				return
			}
		}
	}

	rows, err := h.backend.DriverReport(r.Context(), auth.UserID(r.Context()), rng)
	if err != nil {
		writeUpstreamError(w, h.logger, err)
		return
	}
	rows = report.InRange(rows, rng)

	if q.Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, driverReport{Rows: rows, Totals: report.Sum(rows)})
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"repartidores_%s.xlsx\"", h.now().Format("20060102")))
	if err := report.WriteXLSX(w, rows); err != nil {
		h.logger.Error("export driver report", "error", err)
	}
}
