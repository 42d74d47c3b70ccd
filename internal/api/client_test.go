package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/envios/internal/model"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(srv.URL, staticToken(token), opts...)
}

func TestInventoryArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventarios", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Write([]byte(`[{"id_producto": 1, "nombre_producto": "Camiseta", "sku": "CAM-1", "cantidad_disponible": "5", "precio_sugerido": "20000"}]`))
	}, "abc")

	items, err := c.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Camiseta", items[0].Name)
	assert.Equal(t, model.Int(5), items[0].Stock)
	assert.Equal(t, model.Amount(20000), items[0].Price)
}

func TestInventoryObjectOfRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"10": {"sku": "C"}, "2": {"sku": "B"}, "0": {"sku": "A"}}`))
	}, "abc")

	items, err := c.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{items[0].SKU, items[1].SKU, items[2].SKU})
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := c.Inventory(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, calls.Load(), "no request should be issued without a token")
}

func TestLoginSendsJSONWithoutAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "centro@example.com", req.Email)
		assert.Equal(t, "secret", req.Password)

		w.Write([]byte(`{"user": {"id": 1, "id_rol": 3}, "token": "abc", "sucursales": [{"nombre_sucursal": "Centro"}]}`))
	}, "")

	resp, err := c.Login(context.Background(), "centro@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, model.RoleBranch, resp.User.Role)
	assert.Equal(t, "Centro", resp.Session().BranchName)
}

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusUnprocessableEntity, `{"message": "El correo ya existe"}`, "El correo ya existe"},
		{"error string", http.StatusBadRequest, `{"error": "placa invalida"}`, "placa invalida"},
		{"error object", http.StatusBadRequest, `{"error": {"email": ["requerido"]}}`, `{"email": ["requerido"]}`},
		{"non-JSON body", http.StatusBadGateway, `<html>bad gateway</html>`, "request failed with status 502 (Bad Gateway)"},
		{"empty message", http.StatusInternalServerError, `{"message": ""}`, "request failed with status 500 (Internal Server Error)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, "abc")

			_, err := c.Order(context.Background(), 7)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestInvalidJSONOnSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}, "abc")

	_, err := c.Inventory(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid JSON response", apiErr.Message)
}

func TestAcknowledgementBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"message", `{"message":"Pedido liberado"}`, "Pedido liberado", false},
		{"empty", ``, "", false},
		{"array", `[1,2]`, "", false},
		{"bare string", `  "ok"`, "", false},
		{"wrong message type", `{"message":["a","b"]}`, "", true},
		{"not json", `<html>`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}, "abc")

			ack, err := c.ReleaseOrder(context.Background(), 12, 77)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ack.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, staticToken("abc"), WithLogger(quietLogger()))
	_, err := c.Inventory(context.Background())

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, http.MethodGet, netErr.Method)
	assert.Contains(t, netErr.URL, "/api/inventarios")
}

func TestUnauthorizedHandler(t *testing.T) {
	var cleared atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Unauthenticated."}`))
	}, "abc", WithUnauthorizedHandler(func(context.Context) { cleared.Store(true) }))

	_, err := c.Inventory(context.Background())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.True(t, cleared.Load())
}

func TestLoginRejectionDoesNotClearSession(t *testing.T) {
	var cleared atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "", WithUnauthorizedHandler(func(context.Context) { cleared.Store(true) }))

	_, err := c.Login(context.Background(), "a@b.co", "bad")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.False(t, cleared.Load())
}

// flakyTransport fails the first n round trips before delegating.
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

func TestRetryRecoversFromNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	c := New(srv.URL, staticToken("abc"),
		WithLogger(quietLogger()),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetry(3, time.Millisecond),
	)

	items, err := c.Inventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestRetryGivesUpWithNetworkError(t *testing.T) {
	transport := &flakyTransport{failures: 100, next: http.DefaultTransport}
	c := New("http://example.invalid", staticToken("abc"),
		WithLogger(quietLogger()),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetry(2, time.Millisecond),
	)

	_, err := c.Inventory(context.Background())
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestNoRetryOnAPIError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, "abc", WithRetry(3, time.Millisecond))

	_, err := c.Inventory(context.Background())
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegisterDriverMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register_repartidor", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "moto-1", r.FormValue("nombre_usuario"))
		assert.Equal(t, "4", r.FormValue("id_rol"))
		assert.Equal(t, "0", r.FormValue("estado"))
		assert.Equal(t, "4.7", r.FormValue("latitud"))

		f, hdr, err := r.FormFile("foto_cara")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "face.jpg", hdr.Filename)
		assert.Equal(t, "jpeg-bytes", string(content))

		_, _, err = r.FormFile("foto_documento")
		assert.Error(t, err, "absent upload should not be sent")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message": "registrado"}`))
	}, "")

	ack, err := c.RegisterDriver(context.Background(), model.DriverRegistration{
		Username:  "moto-1",
		Latitude:  4.711,
		Longitude: -74.07,
		FacePhoto: &model.Upload{Filename: "face.jpg", Content: strings.NewReader("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, "registrado", ack.Message)
}

func TestRegisterBranchDefaultsRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reg model.BranchRegistration
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, model.RoleBranch, reg.Role)
		assert.Equal(t, "Centro", reg.BranchName)
		w.Write([]byte(`{"message": "ok"}`))
	}, "")

	ack, err := c.RegisterBranch(context.Background(), model.BranchRegistration{BranchName: "Centro"})
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Message)
}

func TestOrderEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/pedidos/7":
			w.Write([]byte(`{"ID_pedido": 7, "estado_pedido": "EnProceso"}`))
		case "/api/reporte-pedidos/Devuelto/3":
			w.Write([]byte(`{"a": {"id_pedido": 1}}`))
		case "/api/reporte-pedidos-espera/3":
			w.Write([]byte(`null`))
		case "/api/pedidos-no-asignados":
			w.Write([]byte(`[{"id_pedido": 2}, {"id_pedido": 4}]`))
		case "/api/filtrar-pedidos/9/Entregado":
			w.Write([]byte(`[{"id_pedido": 5}]`))
		case "/api/pedidos/actualizar-sin-asignar/3/2":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Empty(t, r.Header.Get("Content-Type"))
			w.Write([]byte(`{"message": "actualizado"}`))
		case "/api/generar-pedido/3":
			var o model.NewOrder
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&o))
			assert.Equal(t, model.StatusWaiting, o.Status)
			assert.Equal(t, int64(12), o.ProductID)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"message": "creado"}`))
		default:
			http.NotFound(w, r)
		}
	}, "abc")
	ctx := context.Background()

	o, err := c.Order(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.Int(7), o.ID)

	returned, err := c.OrdersByStatus(ctx, model.StatusReturned, 3)
	require.NoError(t, err)
	assert.Len(t, returned, 1)

	waiting, err := c.WaitingOrders(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, waiting)
	assert.Empty(t, waiting)

	unassigned, err := c.UnassignedOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, unassigned, 2)

	filtered, err := c.FilterOrders(ctx, 9, model.StatusDelivered)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	ack, err := c.ReleaseOrder(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, "actualizado", ack.Message)

	ack, err = c.CreateOrder(ctx, 3, model.NewOrder{ProductID: 12, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "creado", ack.Message)
}

func TestReportEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/panel-sucursales/3/2024-01-01/2024-12-31":
			w.Write([]byte(`{"estadisticas_pedidos": {"total": 10, "Entregado": "7", "Devuelto": 1, "En proceso": 2}}`))
		case "/api/panel-conductores/3/pedidos":
			w.Write([]byte(`{"estados_pedido": {"En_Espera": "2", "Ganancias_dia": 45000.5}}`))
		case "/api/reporte-repartidores/3":
			q := r.URL.Query()
			assert.Equal(t, model.RangeCustom, q.Get("tipo_fecha"))
			assert.Equal(t, "2024-05-01", q.Get("fecha_desde"))
			assert.Equal(t, "2024-05-31", q.Get("fecha_hasta"))
			w.Write([]byte(`[{"nombre_repartidor": "Ana", "total_pedidos": "4"}]`))
		default:
			http.NotFound(w, r)
		}
	}, "abc")
	ctx := context.Background()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	bd, err := c.BranchDashboard(ctx, 3, from, to)
	require.NoError(t, err)
	assert.Equal(t, model.Int(7), bd.OrderStats["Entregado"])

	dd, err := c.DriverDashboard(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(45000.5), dd.OrderStates["Ganancias_dia"])

	rows, err := c.DriverReport(ctx, 3, model.ReportRange{Kind: model.RangeCustom, From: "2024-05-01", To: "2024-05-31"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.Int(4), rows[0].TotalOrders)
}

func TestDriverReportDefaultRangeOmitsDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, model.RangeToday, q.Get("tipo_fecha"))
		assert.False(t, q.Has("fecha_desde"))
		assert.False(t, q.Has("fecha_hasta"))
		w.Write([]byte(`[]`))
	}, "abc")

	_, err := c.DriverReport(context.Background(), 3, model.ReportRange{})
	require.NoError(t, err)
}
