package orderservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// HTTPHandler adapts HTTP requests to the OrderService.
type HTTPHandler struct {
	svc    ports.OrderService
	logger *logger.Logger
}

// NewHTTPHandler wires an HTTP handler around the OrderService.
func NewHTTPHandler(svc ports.OrderService, logger *logger.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// Register mounts the order routes on the provided mux.
func (handler *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", handler.handleCreateOrder)
	mux.HandleFunc("POST /orders/{id}/items", handler.handleAddItem)
	mux.HandleFunc("POST /orders/{id}/submit", handler.handleSubmit)
	mux.HandleFunc("POST /orders/{id}/collect", handler.handleCollect)
	mux.HandleFunc("GET /orders/{id}", handler.handleGetOrder)
}

// --- Request/Response DTOs (HTTP boundary) ---

type itemRequest struct {
	RecipeID string `json:"recipe_identifier"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string        `json:"customer_identifier"`
	OrderType  string        `json:"order_type"`
	Items      []itemRequest `json:"items"`
}

type historyResponse struct {
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

type orderResponse struct {
	OrderID        string            `json:"order_identifier"`
	CustomerID     string            `json:"customer_identifier"`
	OrderType      string            `json:"order_type"`
	Status         string            `json:"status"`
	Items          []itemRequest     `json:"items"`
	History        []historyResponse `json:"history"`
	AssignedDriver *string           `json:"assigned_driver,omitempty"`
	CompletedOn    *time.Time        `json:"completed_on,omitempty"`
	TotalAmount    float64           `json:"total_amount"`
	AwaitingPickup bool              `json:"awaiting_collection"`
}

func toOrderResponse(o *orders.Order) orderResponse {
	items := make([]itemRequest, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemRequest{RecipeID: it.RecipeID, Quantity: it.Quantity}
	}
	history := make([]historyResponse, len(o.History))
	for i, h := range o.History {
		history[i] = historyResponse{Description: h.Description, At: h.At}
	}
	return orderResponse{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		OrderType:      string(o.Type),
		Status:         string(o.Status),
		Items:          items,
		History:        history,
		AssignedDriver: o.AssignedDriver,
		CompletedOn:    o.CompletedOn,
		TotalAmount:    o.TotalAmount().ToFloat2(),
		AwaitingPickup: o.AwaitingCollection(),
	}
}

// --- Handlers ---

func (handler *HTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createOrderRequest
	if !handler.decode(ctx, w, r, &req) {
		return
	}

	items := make([]ports.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = ports.ItemInput{RecipeID: it.RecipeID, Quantity: it.Quantity}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order, err := handler.svc.CreateOrder(ctxWithTimeout, ports.CreateOrderCommand{
		CustomerID: req.CustomerID,
		Type:       orders.OrderType(strings.ToLower(strings.TrimSpace(req.OrderType))),
		Items:      items,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, toOrderResponse(order))
}

func (handler *HTTPHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req itemRequest
	if !handler.decode(ctx, w, r, &req) {
		return
	}

	order, err := handler.svc.AddItem(ctx, r.PathValue("id"), ports.ItemInput{RecipeID: req.RecipeID, Quantity: req.Quantity})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toOrderResponse(order))
}

func (handler *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	order, err := handler.svc.SubmitOrder(ctx, r.PathValue("id"))
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toOrderResponse(order))
}

func (handler *HTTPHandler) handleCollect(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	order, err := handler.svc.CollectOrder(ctx, r.PathValue("id"))
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toOrderResponse(order))
}

func (handler *HTTPHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	order, err := handler.svc.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

// decode strictly reads a JSON body with a size cap.
func (handler *HTTPHandler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// serviceError maps service failures to HTTP statuses.
func (handler *HTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "order not found", err)
	case errors.Is(err, orders.ErrItemsLocked):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

// httpError sends a JSON error response with a message.
func (handler *HTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse encodes data to the HTTP response.
func (handler *HTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		handler.logger.Error(ctx, "response_encode_failed", "failed to encode response", err)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *HTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
