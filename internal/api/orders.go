package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/envios/internal/model"
)

func idSegment(id model.Int) string {
	return strconv.FormatInt(int64(id), 10)
}

// Order fetches one order's detail.
func (c *Client) Order(ctx context.Context, id model.Int) (model.Order, error) {
	var o model.Order
	if err := c.getJSON(ctx, "/api/pedidos/"+idSegment(id), nil, &o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// OrdersByStatus lists the user's orders in one status, e.g. "EnProceso".
func (c *Client) OrdersByStatus(ctx context.Context, status string, userID model.Int) ([]model.Order, error) {
	path := fmt.Sprintf("/api/reporte-pedidos/%s/%s", url.PathEscape(status), idSegment(userID))
	return getCollection[model.Order](ctx, c, path, nil)
}

// WaitingOrders lists the user's orders waiting for pickup.
func (c *Client) WaitingOrders(ctx context.Context, userID model.Int) ([]model.Order, error) {
	return getCollection[model.Order](ctx, c, "/api/reporte-pedidos-espera/"+idSegment(userID), nil)
}

// UnassignedOrders lists orders no courier has taken yet.
func (c *Client) UnassignedOrders(ctx context.Context) ([]model.Order, error) {
	return getCollection[model.Order](ctx, c, "/api/pedidos-no-asignados", nil)
}

// FilterOrders lists one courier's orders in one status.
func (c *Client) FilterOrders(ctx context.Context, driverID model.Int, status string) ([]model.Order, error) {
	path := fmt.Sprintf("/api/filtrar-pedidos/%s/%s", idSegment(driverID), url.PathEscape(status))
	return getCollection[model.Order](ctx, c, path, nil)
}

// ReleaseOrder returns an order to the waiting pool on behalf of userID.
func (c *Client) ReleaseOrder(ctx context.Context, userID, orderID model.Int) (Ack, error) {
	path := fmt.Sprintf("/api/pedidos/actualizar-sin-asignar/%s/%s", idSegment(userID), idSegment(orderID))
	data, err := c.do(ctx, request{method: http.MethodPost, path: path, auth: true})
	if err != nil {
		return Ack{}, err
	}
	return decodeAck(data)
}

// CreateOrder generates a new order for the branch user.
func (c *Client) CreateOrder(ctx context.Context, userID model.Int, order model.NewOrder) (Ack, error) {
	if order.Status == "" {
		order.Status = model.StatusWaiting
	}
	req, err := jsonRequest(http.MethodPost, "/api/generar-pedido/"+idSegment(userID), order, true)
	if err != nil {
		return Ack{}, err
	}
	data, err := c.do(ctx, req)
	if err != nil {
		return Ack{}, err
	}
	return decodeAck(data)
}
