package deliveryservice

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

const maxBodyBytes = 1 << 20

// Handler exposes the driver hand-off commands over HTTP.
type Handler struct {
	service ports.DeliveryService
	logger  *logger.Logger
}

func NewHandler(service ports.DeliveryService, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /deliveries/awaiting", h.withReqID(h.listAwaiting))
	mux.HandleFunc("POST /deliveries/{orderID}/assign", h.withReqID(h.assign))
	mux.HandleFunc("POST /deliveries/{orderID}/collect", h.withReqID(h.collect))
	mux.HandleFunc("POST /deliveries/{orderID}/deliver", h.withReqID(h.deliver))
}

type assignRequest struct {
	DriverName string `json:"driverName"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	var req assignRequest
	if err := decodeStrict(w, r, &req); err != nil {
		h.httpError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.DriverName == "" {
		h.httpError(w, r, http.StatusBadRequest, "driver name is required", nil)
		return
	}

	if err := h.service.AssignDriver(r.Context(), orderID, req.DriverName); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, map[string]string{"order_id": orderID, "driver": req.DriverName})
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	if err := h.service.MarkCollected(r.Context(), orderID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, map[string]string{"order_id": orderID})
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	if err := h.service.MarkDelivered(r.Context(), orderID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, map[string]string{"order_id": orderID})
}

func (h *Handler) listAwaiting(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.service.ListAwaiting(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, deliveries)
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		h.httpError(w, r, http.StatusNotFound, "delivery not found", err)
	case errors.As(err, &pgErr):
		h.httpError(w, r, http.StatusInternalServerError, "storage failure", err)
	default:
		h.httpError(w, r, http.StatusBadRequest, err.Error(), err)
	}
}

func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (h *Handler) httpError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		h.logger.Error(r.Context(), "http_request_failed", message, err)
	}
	h.jsonResponse(w, r, status, map[string]string{"error": message})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error(r.Context(), "http_response_failed", "Failed to encode response", err)
	}
}

func (h *Handler) withReqID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = randID()
		}
		next(w, r.WithContext(h.logger.WithRequestID(r.Context(), reqID)))
	}
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
