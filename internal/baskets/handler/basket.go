package handler

import (
	"net/http"

	"sharebasket/internal/baskets/service"
	httputil "sharebasket/pkg/http"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BasketHandler struct {
	service service.BasketService
	log     *logger.Logger
}

func NewBasketHandler(service service.BasketService, log *logger.Logger) *BasketHandler {
	return &BasketHandler{
		service: service,
		log:     log,
	}
}

// Create accepts an empty body or {"name": "..."}.
func (h *BasketHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBasketRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	basket, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, model.CreateBasketResponse{
		Code:      basket.Code,
		CreatedAt: basket.CreatedAt,
	}); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BasketHandler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.JoinBasketRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Join", err)
		return
	}

	code, err := h.service.Join(r.Context(), httputil.BasketCode(ps), &req)
	if err != nil {
		h.writeError(w, "Join", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.JoinBasketResponse{Code: code}); err != nil {
		h.log.Error("failed to write success response", "handler", "Join", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BasketHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	basket, err := h.service.Get(r.Context(), httputil.BasketCode(ps))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, basket); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BasketHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BasketHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/baskets", h.Create)
	router.GET("/baskets/:code", h.Get)
	router.POST("/baskets/:code/participants", h.Join)
}
