package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/ledger"
	"github.com/mch-billing/terminal/internal/pricing"
	"github.com/mch-billing/terminal/internal/service"
)

// BillService defines the terminal methods needed by bill handlers.
// Satisfied by *service.Terminal.
type BillService interface {
	Bill() service.BillSnapshot
	Quote(itemID int64, in service.RegimenInput) (catalog.Item, pricing.Quote, error)
	AddToBill(itemID int64, in service.RegimenInput) (ledger.Line, error)
	RemoveLine(index int) bool
	RemoveLineByName(name string) bool
	ClearBill()
	Commit() (service.Receipt, error)
}

// BillHandler serves the active patient bill.
type BillHandler struct {
	svc BillService
	log zerolog.Logger
}

func NewBillHandler(svc BillService, log zerolog.Logger) *BillHandler {
	return &BillHandler{svc: svc, log: log}
}

// RegisterRoutes registers bill endpoints. Expected to be mounted at /bill.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/quote", h.Quote)
	r.Post("/lines", h.AddLine)
	r.Delete("/lines/{index}", h.RemoveAt)
	r.Delete("/lines", h.RemoveByName)
	r.Post("/clear", h.Clear)
	r.Post("/commit", h.Commit)
}

// --- Request types ---

// lineRequest carries the dosing panel (dose_qty, frequency, days, route)
// or the quantity panel (units). Numeric fields accept numbers or strings;
// omitted fields use the panel defaults.
type lineRequest struct {
	ItemID    int64  `json:"item_id"`
	DoseQty   any    `json:"dose_qty"`
	Frequency any    `json:"frequency"`
	Days      any    `json:"days"`
	Route     string `json:"route"`
	Units     any    `json:"units"`
}

func (req lineRequest) regimen() service.RegimenInput {
	return service.RegimenInput{
		DoseQty:   req.DoseQty,
		Frequency: req.Frequency,
		Days:      req.Days,
		Route:     req.Route,
		Units:     req.Units,
	}
}

// --- Handlers ---

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toBillResponse(h.svc.Bill()))
}

// Quote prices an item without adding it, for the dosing panel's live total.
func (h *BillHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	item, q, err := h.svc.Quote(req.ItemID, req.regimen())
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		internalError(w, h.log, err, "quote item")
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(item, q))
}

// AddLine prices an item and appends it to the bill. It returns the bill.
func (h *BillHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	if _, err := h.svc.AddToBill(req.ItemID, req.regimen()); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		internalError(w, h.log, err, "add bill line")
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(h.svc.Bill()))
}

// RemoveAt removes the line at {index}. An out-of-range index is a no-op.
func (h *BillHandler) RemoveAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	h.svc.RemoveLine(index)
	writeJSON(w, http.StatusOK, toBillResponse(h.svc.Bill()))
}

// RemoveByName removes the first line named ?name=. No match is a no-op.
func (h *BillHandler) RemoveByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	h.svc.RemoveLineByName(name)
	writeJSON(w, http.StatusOK, toBillResponse(h.svc.Bill()))
}

func (h *BillHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearBill()
	writeJSON(w, http.StatusOK, toBillResponse(h.svc.Bill()))
}

// Commit finalises the bill and returns the receipt. An empty bill cannot
// be committed.
func (h *BillHandler) Commit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.svc.Commit()
	if err != nil {
		if errors.Is(err, service.ErrEmptyBill) {
			writeError(w, http.StatusConflict, "bill is empty")
			return
		}
		internalError(w, h.log, err, "commit bill")
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}
