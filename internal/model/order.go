package model

import "encoding/json"

// Order statuses as used in report paths.
const (
	StatusWaiting    = "Espera"
	StatusInProgress = "EnProceso"
	StatusReturned   = "Devuelto"
	StatusDelivered  = "Entregado"
)

type Order struct {
	ID              Int             `json:"id_pedido"`
	Date            string          `json:"fecha_pedido"`
	Status          string          `json:"estado_pedido"`
	City            string          `json:"ciudad"`
	Country         string          `json:"pais,omitempty"`
	PickupAddress   string          `json:"direccion_recogida"`
	DeliveryAddress string          `json:"direccion_entrega"`
	CustomerName    string          `json:"nombre_cliente"`
	ShippingCost    Amount          `json:"costo_envio"`
	ProductValue    Amount          `json:"valor_producto"`
	Total           Amount          `json:"total"`
	WindowStart     string          `json:"hora_inicio"`
	WindowEnd       string          `json:"hora_fin"`
	ProductDetails  json.RawMessage `json:"detalles_producto,omitempty"`
}

// UnmarshalJSON accepts the detail endpoint's "ID_pedido" spelling.
func (o *Order) UnmarshalJSON(data []byte) error {
	type orderAlias Order
	aux := struct {
		*orderAlias
		DetailID Int `json:"ID_pedido"`
	}{orderAlias: (*orderAlias)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if o.ID == 0 {
		o.ID = aux.DetailID
	}
	return nil
}

// Charge is the shipping cost plus the product value.
func (o Order) Charge() float64 {
	return float64(o.ShippingCost) + float64(o.ProductValue)
}

// NewOrder is the payload for generar-pedido.
type NewOrder struct {
	Quantity     int    `json:"cantidad"`
	ShippingCost string `json:"costo_envio"`
	Address      string `json:"direccion"`
	Email        string `json:"email"`
	Status       string `json:"estado"`
	DeliveryDate string `json:"fecha_de_entrega"`
	DriverDate   string `json:"fecha_entrega_repartidor"`
	WindowStart  string `json:"hora_inicio"`
	WindowEnd    string `json:"hora_final"`
	ProductID    int64  `json:"id_producto"`
	Name         string `json:"nombre"`
	Origin       string `json:"origin"`
	Phone        string `json:"telefono"`
}
