package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drblury/orderflow/internal/jsoncodec"
)

// orderRequest is the mutation payload. The public API historically used the
// key "user"; "user_name" is accepted as well.
type orderRequest struct {
	User     string   `json:"user"`
	UserName string   `json:"user_name"`
	Product  string   `json:"product"`
	Price    *float64 `json:"price"`
}

func (r orderRequest) userName() string {
	if r.User != "" {
		return r.User
	}
	return r.UserName
}

func (r orderRequest) valid() bool {
	return r.userName() != "" && r.Product != "" && r.Price != nil && *r.Price > 0
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewRouter builds the order API: CRUD under /orders plus a liveness probe.
func NewRouter(svc *Service, log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(allowAllCORS)

	h := &handlers{svc: svc, log: log}
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	return r
}

// allowAllCORS mirrors the permissive policy of the original API surface.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handlers struct {
	svc *Service
	log *slog.Logger
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := jsoncodec.Decode(r.Body, &req); err != nil || !req.valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "missing required fields: user, product, price"})
		return
	}

	o, err := h.svc.Create(r.Context(), req.userName(), req.Product, *req.Price)
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "order not found"})
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := jsoncodec.Decode(r.Body, &req); err != nil || !req.valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "missing required fields: user, product, price"})
		return
	}

	o, err := h.svc.Update(r.Context(), id, req.userName(), req.Product, *req.Price)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "order not found"})
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "order not found"})
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handlers) serverError(w http.ResponseWriter, err error) {
	h.log.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid order id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jsoncodec.Encode(w, v)
}
