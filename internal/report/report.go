// Package report summarizes dashboard and driver report data and exports
// driver reports as spreadsheets.
package report

import (
	"math"

	"github.com/dukerupert/envios/internal/model"
)

// UnassignedDriver labels report rows without a driver name.
const UnassignedDriver = "Sin asignar"

type BranchStats struct {
	Total        int64   `json:"total"`
	Delivered    int64   `json:"entregados"`
	Returned     int64   `json:"devueltos"`
	InProgress   int64   `json:"en_proceso"`
	DeliveryRate float64 `json:"porcentaje_entrega"`
	ReturnRate   float64 `json:"porcentaje_devolucion"`
}

// Branch computes totals and delivery/return percentages, rounded to two
// decimals. Percentages are zero when there are no orders.
func Branch(d model.BranchDashboard) BranchStats {
	s := BranchStats{
		Total:      int64(d.OrderStats["total"]),
		Delivered:  int64(d.OrderStats[model.StatusDelivered]),
		Returned:   int64(d.OrderStats[model.StatusReturned]),
		InProgress: int64(d.OrderStats["En proceso"]),
	}
	if s.Total > 0 {
		s.DeliveryRate = percent(s.Delivered, s.Total)
		s.ReturnRate = percent(s.Returned, s.Total)
	}
	return s
}

func percent(n, total int64) float64 {
	return math.Round(float64(n)/float64(total)*10000) / 100
}

type DriverStats struct {
	Waiting    int64   `json:"en_espera"`
	InProgress int64   `json:"por_entregar"`
	Failed     int64   `json:"entregas_fallidas"`
	Delivered  int64   `json:"entregados"`
	Earnings   float64 `json:"ganancias_dia"`
}

func Driver(d model.DriverDashboard) DriverStats {
	return DriverStats{
		Waiting:    int64(d.OrderStates["En_Espera"]),
		InProgress: int64(d.OrderStates["En_proceso"]),
		Failed:     int64(d.OrderStates["Devuelto"]),
		Delivered:  int64(d.OrderStates["Entregado"]),
		Earnings:   float64(d.OrderStates["Ganancias_dia"]),
	}
}

type Totals struct {
	Drivers        int     `json:"repartidores"`
	Orders         int64   `json:"total_pedidos"`
	Delivered      int64   `json:"entregados"`
	Returned       int64   `json:"devueltos"`
	InProgress     int64   `json:"en_proceso"`
	Waiting        int64   `json:"en_espera"`
	DigitalPay     float64 `json:"pago_digital"`
	CashOnDelivery float64 `json:"contra_entrega"`
	Collected      float64 `json:"total_pagos"`
	ShippingCost   float64 `json:"costo_envio"`
	Fee            float64 `json:"fee99"`
	Total          float64 `json:"total"`
}

func Sum(rows []model.DriverReportRow) Totals {
	t := Totals{Drivers: len(rows)}
	for _, r := range rows {
		t.Orders += int64(r.TotalOrders)
		t.Delivered += int64(r.Delivered)
		t.Returned += int64(r.Returned)
		t.InProgress += int64(r.InProgress)
		t.Waiting += int64(r.Waiting)
		t.DigitalPay += float64(r.DigitalPay)
		t.CashOnDelivery += float64(r.CashOnDeliver)
		t.Collected += float64(r.Collected)
		t.ShippingCost += float64(r.ShippingCost)
		t.Fee += float64(r.Fee)
		t.Total += float64(r.Total)
	}
	return t
}

// InRange keeps rows whose order date falls inside a custom range. Dates
// are compared as YYYY-MM-DD strings; other range kinds keep every row.
func InRange(rows []model.DriverReportRow, r model.ReportRange) []model.DriverReportRow {
	if r.Kind != model.RangeCustom {
		return rows
	}
	out := make([]model.DriverReportRow, 0, len(rows))
	for _, row := range rows {
		if r.From != "" && row.OrderDate < r.From {
			continue
		}
		if r.To != "" && row.OrderDate > r.To {
			continue
		}
		out = append(out, row)
	}
	return out
}

func DriverName(r model.DriverReportRow) string {
	if r.DriverName == "" {
		return UnassignedDriver
	}
	return r.DriverName
}
