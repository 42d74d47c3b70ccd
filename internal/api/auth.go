package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dukerupert/envios/internal/model"
)

// Login exchanges credentials for a token. It is the only call besides
// registration that needs no session.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResponse, error) {
	req, err := jsonRequest(http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, false)
	if err != nil {
		return model.LoginResponse{}, err
	}
	data, err := c.do(ctx, req)
	if err != nil {
		return model.LoginResponse{}, err
	}

	var resp model.LoginResponse
	if err := decodeObject(data, &resp); err != nil {
		return model.LoginResponse{}, err
	}
	return resp, nil
}

// RegisterBranch creates a branch account.
func (c *Client) RegisterBranch(ctx context.Context, reg model.BranchRegistration) (Ack, error) {
	if reg.Role == 0 {
		reg.Role = model.RoleBranch
	}
	req, err := jsonRequest(http.MethodPost, "/api/auth/register_sucursal", reg, false)
	if err != nil {
		return Ack{}, err
	}
	data, err := c.do(ctx, req)
	if err != nil {
		return Ack{}, err
	}
	return decodeAck(data)
}

// RegisterDriver creates a courier account. The form is sent as
// multipart/form-data so the profile and document photos can travel with it.
func (c *Client) RegisterDriver(ctx context.Context, reg model.DriverRegistration) (Ack, error) {
	body, contentType, err := driverForm(reg)
	if err != nil {
		return Ack{}, err
	}
	data, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/register_repartidor",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return Ack{}, err
	}
	return decodeAck(data)
}

func driverForm(reg model.DriverRegistration) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"nombre_usuario", reg.Username},
		{"telefono", reg.Phone},
		{"direccion", reg.Address},
		{"documento_identidad", reg.IdentityDocument},
		{"email", reg.Email},
		{"pais", strconv.Itoa(reg.Country)},
		{"capacidad_carga", reg.LoadCapacity},
		{"tipo_vehiculo", reg.VehicleType},
		{"placa_vehiculo", reg.VehiclePlate},
		{"ciudad", reg.City},
		{"password", reg.Password},
		{"password_confirmation", reg.PasswordConfirmation},
		{"id_rol", strconv.Itoa(int(model.RoleCourier))},
		{"estado", "0"},
		{"tipo_identificacion", reg.IDType},
		{"numero_soat", reg.SOATNumber},
		{"numero_tecnomecanica", reg.InspectionNumber},
		{"latitud", strconv.FormatFloat(reg.Latitude, 'f', 1, 64)},
		{"longitud", strconv.FormatFloat(reg.Longitude, 'f', 1, 64)},
		{"fecha_vencimiento_soat", reg.SOATExpiry},
		{"fecha_vencimiento_tecnomecanica", reg.InspectionExpiry},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	files := []struct {
		name   string
		upload *model.Upload
	}{
		{"foto_cara", reg.FacePhoto},
		{"foto_documento", reg.DocumentPhoto},
	}
	for _, f := range files {
		if f.upload == nil || f.upload.Content == nil {
			continue
		}
		part, err := w.CreateFormFile(f.name, f.upload.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.name, err)
		}
		if _, err := io.Copy(part, f.upload.Content); err != nil {
			return nil, "", fmt.Errorf("copy file %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
