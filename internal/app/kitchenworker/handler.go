package kitchenworker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// Handler exposes the kitchen staff commands over HTTP.
type Handler struct {
	service ports.KitchenService
	repo    ports.KitchenRepository
	uow     ports.UnitOfWork
	logger  *logger.Logger
}

func NewHandler(service ports.KitchenService, repo ports.KitchenRepository, uow ports.UnitOfWork, logger *logger.Logger) *Handler {
	return &Handler{service: service, repo: repo, uow: uow, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /kitchen/{orderID}/prep-complete", h.withReqID(h.prepComplete))
	mux.HandleFunc("POST /kitchen/{orderID}/bake-complete", h.withReqID(h.bakeComplete))
	mux.HandleFunc("POST /kitchen/{orderID}/quality-checked", h.withReqID(h.qualityChecked))
	mux.HandleFunc("GET /kitchen/{orderID}", h.withReqID(h.getRequest))
}

func (h *Handler) prepComplete(w http.ResponseWriter, r *http.Request) {
	h.stageCommand(w, r, h.service.MarkPrepComplete)
}

func (h *Handler) bakeComplete(w http.ResponseWriter, r *http.Request) {
	h.stageCommand(w, r, h.service.MarkBakeComplete)
}

func (h *Handler) qualityChecked(w http.ResponseWriter, r *http.Request) {
	h.stageCommand(w, r, h.service.MarkQualityChecked)
}

func (h *Handler) stageCommand(w http.ResponseWriter, r *http.Request, command func(context.Context, string) error) {
	orderID := r.PathValue("orderID")
	if orderID == "" {
		h.httpError(w, r, http.StatusBadRequest, "order id is required", nil)
		return
	}
	if err := command(r.Context(), orderID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, map[string]string{"order_id": orderID})
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	var req *kitchen.Request
	err := h.uow.WithinTx(r.Context(), func(txCtx context.Context) error {
		var err error
		req, err = h.repo.Retrieve(txCtx, orderID)
		return err
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, r, http.StatusOK, req)
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		h.httpError(w, r, http.StatusNotFound, "kitchen request not found", err)
	case errors.As(err, &pgErr):
		h.httpError(w, r, http.StatusInternalServerError, "storage failure", err)
	default:
		h.httpError(w, r, http.StatusBadRequest, err.Error(), err)
	}
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
