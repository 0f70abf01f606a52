package loyaltyworker

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

const maxBodyBytes = 1 << 20

// Handler exposes the spend command and balance lookups over HTTP.
type Handler struct {
	service ports.LoyaltyService
	logger  *logger.Logger
}

func NewHandler(service ports.LoyaltyService, logger *logger.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /loyalty/{customerID}/spend", h.withReqID(h.spend))
	mux.HandleFunc("GET /loyalty/{customerID}", h.withReqID(h.balance))
}

type spendRequest struct {
	Points int64 `json:"points"`
}

type balanceResponse struct {
	CustomerID    string `json:"customerIdentifier"`
	PointsBalance int64  `json:"pointsTotal"`
}

func (h *Handler) spend(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerID")
	if customerID == "" {
		h.httpError(w, r, http.StatusBadRequest, "customer id is required", nil)
		return
	}

	var req spendRequest
	if err := decodeStrict(w, r, &req); err != nil {
		h.httpError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Points <= 0 {
		h.httpError(w, r, http.StatusBadRequest, "points must be positive", nil)
		return
	}

	balance, err := h.service.Spend(r.Context(), customerID, req.Points)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, balanceResponse{
		CustomerID:    loyalty.NormalizeCustomerID(customerID),
		PointsBalance: balance,
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerID")

	balance, err := h.service.Balance(r.Context(), customerID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, balanceResponse{
		CustomerID:    loyalty.NormalizeCustomerID(customerID),
		PointsBalance: balance,
	})
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		h.httpError(w, r, http.StatusConflict, "insufficient points", err)
	case errors.Is(err, ports.ErrNotFound):
		h.httpError(w, r, http.StatusNotFound, "loyalty account not found", err)
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
