package model

import "io"

type BranchRegistration struct {
	Role                 Role   `json:"id_rol"`
	Country              string `json:"pais"`
	BranchName           string `json:"nombre_sucursal"`
	Address              string `json:"direccion"`
	City                 string `json:"ciudad"`
	FirstName            string `json:"nombre"`
	LastName             string `json:"apellido"`
	IDType               string `json:"tipo_identificacion"`
	IDNumber             string `json:"num_identificacion"`
	Email                string `json:"email"`
	Phone                string `json:"telefono"`
	Product              string `json:"producto"`
	Quantity             string `json:"cantidad"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	AcceptedTerms        bool   `json:"terminosCondiciones"`
}

// Upload is a file part of a multipart registration.
type Upload struct {
	Filename string
	Content  io.Reader
}

// DriverRegistration is sent as multipart/form-data; the JSON tags name
// the same form fields for callers that read it from a file.
type DriverRegistration struct {
	Username             string  `json:"nombre_usuario"`
	Phone                string  `json:"telefono"`
	Address              string  `json:"direccion"`
	IdentityDocument     string  `json:"documento_identidad"`
	Email                string  `json:"email"`
	Country              int     `json:"pais"`
	LoadCapacity         string  `json:"capacidad_carga"`
	VehicleType          string  `json:"tipo_vehiculo"`
	VehiclePlate         string  `json:"placa_vehiculo"`
	City                 string  `json:"ciudad"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	IDType               string  `json:"tipo_identificacion"`
	SOATNumber           string  `json:"numero_soat"`
	InspectionNumber     string  `json:"numero_tecnomecanica"`
	Latitude             float64 `json:"latitud"`
	Longitude            float64 `json:"longitud"`
	SOATExpiry           string  `json:"fecha_vencimiento_soat"`
	InspectionExpiry     string  `json:"fecha_vencimiento_tecnomecanica"`
	FacePhoto            *Upload `json:"-"`
	DocumentPhoto        *Upload `json:"-"`
}
