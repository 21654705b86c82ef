package handler

import (
	"net/http"

	"sharebasket/internal/items/service"
	httputil "sharebasket/pkg/http"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ItemHandler struct {
	service service.ItemService
	log     *logger.Logger
}

func NewItemHandler(service service.ItemService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: service,
		log:     log,
	}
}

func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.NewItem
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Add", err)
		return
	}

	item, err := h.service.Add(r.Context(), httputil.BasketCode(ps), &req)
	if err != nil {
		h.writeError(w, "Add", err)
		return
	}

	if err := httputil.WriteCreated(w, item); err != nil {
		h.log.Error("failed to write created response", "handler", "Add", "operation", "WriteCreated", "error", err)
	}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	list, err := h.service.List(r.Context(), httputil.BasketCode(ps))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, list); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ItemID(ps)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), httputil.BasketCode(ps), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccess(w, httputil.MessageResponse{Message: "Item deleted", ID: id}); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

// Totals attributes the individual share to ?participant=, which may be empty.
func (h *ItemHandler) Totals(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	summary, err := h.service.Totals(r.Context(), httputil.BasketCode(ps), r.URL.Query().Get("participant"))
	if err != nil {
		h.writeError(w, "Totals", err)
		return
	}

	if err := httputil.WriteSuccess(w, summary); err != nil {
		h.log.Error("failed to write success response", "handler", "Totals", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ItemHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ItemHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/baskets/:code/items", h.Add)
	router.GET("/baskets/:code/items", h.List)
	router.DELETE("/baskets/:code/items/:id", h.Delete)
	router.GET("/baskets/:code/totals", h.Totals)
}
