package model

import "encoding/json"

type Product struct {
	ID       Int             `json:"id_producto"`
	Name     string          `json:"nombre_producto"`
	SKU      string          `json:"sku"`
	Stock    Int             `json:"cantidad_disponible"`
	Price    Amount          `json:"precio_sugerido"`
	Category string          `json:"categoria"`
	Images   json.RawMessage `json:"imagenes,omitempty"`
}
