package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/travel-checkout/internal/checkout"
)

type CheckoutAssembler interface {
	Assemble(ctx context.Context, token string) (*checkout.Page, error)
	OrderSummary(ctx context.Context, token string) (*checkout.OrderPage, error)
}

type CheckoutHandler struct {
	assembler CheckoutAssembler
	limiter   func(http.Handler) http.Handler
}

// NewCheckoutHandler serves the public reference routes. limiter may be nil.
func NewCheckoutHandler(assembler CheckoutAssembler, limiter func(http.Handler) http.Handler) *CheckoutHandler {
	return &CheckoutHandler{
		assembler: assembler,
		limiter:   limiter,
	}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Get("/checkout/{reference}", h.handleCheckoutPage)
		r.Get("/orders/{reference}", h.handleOrderPage)
		r.Get("/api/checkout/{reference}", h.handleCheckoutJSON)
		r.Get("/api/orders/{reference}", h.handleOrderJSON)
	})
}

func (h *CheckoutHandler) handleCheckoutPage(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	noStore(w)

	page, err := h.assembler.Assemble(r.Context(), reference)
	if err != nil {
		h.logFailure(r, reference, err)
		h.renderFailure(w, err)
		return
	}

	respondWithHTML(w, http.StatusOK, "checkout.html", page)
}

func (h *CheckoutHandler) handleOrderPage(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	noStore(w)

	page, err := h.assembler.OrderSummary(r.Context(), reference)
	if err != nil {
		h.logFailure(r, reference, err)
		h.renderFailure(w, err)
		return
	}

	respondWithHTML(w, http.StatusOK, "order.html", page)
}

func (h *CheckoutHandler) handleCheckoutJSON(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	noStore(w)

	page, err := h.assembler.Assemble(r.Context(), reference)
	if err != nil {
		h.logFailure(r, reference, err)
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Checkout"))
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *CheckoutHandler) handleOrderJSON(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	noStore(w)

	page, err := h.assembler.OrderSummary(r.Context(), reference)
	if err != nil {
		h.logFailure(r, reference, err)
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Order"))
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *CheckoutHandler) renderFailure(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	switch statusCode {
	case http.StatusNotFound:
		respondWithHTML(w, statusCode, "notfound.html", nil)
	default:
		respondWithHTML(w, statusCode, "unavailable.html", nil)
	}
}

func (h *CheckoutHandler) logFailure(r *http.Request, reference string, err error) {
	event := log.Error()
	if errors.Is(err, checkout.ErrNotFound) {
		event = log.Info()
	}
	event.Err(err).
		Str("reference", reference).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("Failed to assemble page")
}

func clientMessage(err error, subject string) string {
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		return subject + " not found"
	case errors.Is(err, checkout.ErrConfiguration):
		return "Online payment is temporarily unavailable"
	default:
		return "Failed to load " + subject
	}
}
