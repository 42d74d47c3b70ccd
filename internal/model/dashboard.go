package model

// BranchDashboard is the panel-sucursales response.
type BranchDashboard struct {
	OrderStats map[string]Int `json:"estadisticas_pedidos"`
}

// DriverDashboard is the panel-conductores response.
type DriverDashboard struct {
	OrderStates map[string]Amount `json:"estados_pedido"`
}

type DriverReportRow struct {
	DriverID      Int    `json:"id_repartidor,omitempty"`
	DriverName    string `json:"nombre_repartidor"`
	OrderDate     string `json:"fecha_pedido,omitempty"`
	TotalOrders   Int    `json:"total_pedidos"`
	Delivered     Int    `json:"entregados"`
	Returned      Int    `json:"devueltos"`
	InProgress    Int    `json:"en_proceso"`
	Waiting       Int    `json:"en_espera"`
	DigitalPay    Amount `json:"pago_digital"`
	CashOnDeliver Amount `json:"contra_entrega"`
	Collected     Amount `json:"total_pagos"`
	ShippingCost  Amount `json:"costo_envio"`
	Fee           Amount `json:"fee99"`
	Total         Amount `json:"total"`
}

// Report range kinds accepted by reporte-repartidores.
const (
	RangeToday  = "hoy"
	RangeCustom = "personalizado"
)

type ReportRange struct {
	Kind string
	From string
	To   string
}
