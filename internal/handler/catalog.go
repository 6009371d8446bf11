package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/enum"
	"github.com/mch-billing/terminal/internal/service"
)

// CatalogService defines the terminal methods needed by catalog handlers.
// Satisfied by *service.Terminal; narrow interface for testability.
type CatalogService interface {
	Catalog() service.CatalogSnapshot
	Categories() service.CategoryLists
	Search(query string) []catalog.Item
	CategoryItems(category, query string) []catalog.Item
	Item(id int64) (catalog.Item, error)
	AddItem(item catalog.Item) (catalog.Item, error)
	UpdateItem(id int64, item catalog.Item) (catalog.Item, error)
	DeleteItem(id int64) error
	ImportCatalog(r io.Reader) (int, error)
	ExportCatalog() []catalog.Item
}

// CatalogHandler serves the pricing database and category projections.
type CatalogHandler struct {
	svc CatalogService
	log zerolog.Logger
	now func() time.Time
}

func NewCatalogHandler(svc CatalogService, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log, now: time.Now}
}

// RegisterRoutes registers catalog endpoints. Expected to be mounted at /catalog.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Snapshot)
	r.Get("/categories", h.Categories)
	r.Get("/categories/{category}/items", h.CategoryItems)
	r.Get("/options", h.Options)
	r.Get("/items", h.Search)
	r.Get("/items/{id}", h.Get)
	r.Post("/items", h.Create)
	r.Put("/items/{id}", h.Update)
	r.Delete("/items/{id}", h.Delete)
	r.Post("/import", h.Import)
	r.Get("/export", h.Export)
	r.Get("/export.csv", h.ExportCSV)
}

// --- Request types ---

// itemRequest is the pricing-database form. Price may be a number or a string.
type itemRequest struct {
	Name     string `json:"name"`
	Price    any    `json:"price"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Strength string `json:"strength"`
}

func (req itemRequest) toItem() (catalog.Item, error) {
	if req.Price == nil {
		return catalog.Item{}, errPriceRequired
	}
	price, err := catalog.ParseFormPrice(cast.ToString(req.Price))
	if err != nil {
		return catalog.Item{}, err
	}
	return catalog.Item{
		Name:     req.Name,
		Price:    price,
		Type:     req.Type,
		Category: req.Category,
		Strength: req.Strength,
	}, nil
}

var errPriceRequired = errors.New("price is required")

func isItemValidation(err error) bool {
	return errors.Is(err, errPriceRequired) ||
		errors.Is(err, catalog.ErrEmptyName) ||
		errors.Is(err, catalog.ErrInvalidPrice) ||
		errors.Is(err, catalog.ErrNegativePrice)
}

// --- Handlers ---

// Snapshot returns every category bucket and whether the initial load is
// still running.
func (h *CatalogHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Catalog()
	cats := make(map[string][]itemResponse, len(snap.Categories))
	for cat, items := range snap.Categories {
		cats[cat] = toItemResponses(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loading":    snap.Loading,
		"categories": cats,
	})
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	lists := h.svc.Categories()
	writeJSON(w, http.StatusOK, map[string][]string{
		"outpatient": lists.Outpatient,
		"inpatient":  lists.Inpatient,
	})
}

// CategoryItems lists one category filtered by ?q=. An unknown category is
// an empty list, not a 404.
func (h *CatalogHandler) CategoryItems(w http.ResponseWriter, r *http.Request) {
	items := h.svc.CategoryItems(chi.URLParam(r, "category"), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// Options lists the fixed choices offered by the catalog form and dosing panel.
func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types":       enum.MedicineTypes,
		"routes":      enum.DoseRoutes,
		"frequencies": enum.DoseFrequencies,
		"defaults": map[string]string{
			"dose_qty":  enum.DefaultDoseQty,
			"frequency": enum.DefaultDoseFrequency,
			"days":      enum.DefaultDoseDays,
			"units":     enum.DefaultServiceQty,
		},
	})
}

// Search matches ?q= against item and category names across the catalog.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toItemResponses(h.svc.Search(r.URL.Query().Get("q"))))
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	item, err := h.svc.Item(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := req.toItem()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.svc.AddItem(item)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCatalogLoading):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case isItemValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, h.log, err, "add catalog item")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(stored))
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	var req itemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := req.toItem()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.UpdateItem(id, item)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, service.ErrCatalogLoading):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case isItemValidation(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, h.log, err, "update catalog item")
		}
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(updated))
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	if err := h.svc.DeleteItem(id); err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, service.ErrCatalogLoading):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			internalError(w, h.log, err, "delete catalog item")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import replaces the catalog with the JSON array in the body. The whole
// document is validated first; a rejected import changes nothing.
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.svc.ImportCatalog(bytes.NewReader(body))
	if err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": verr.Error(),
				"index": verr.Index,
			})
			return
		}
		if errors.Is(err, service.ErrCatalogLoading) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		internalError(w, h.log, err, "import catalog")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// Export downloads the flattened catalog as mch_db_<date>.json.
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := catalog.EncodeExport(&buf, h.svc.ExportCatalog()); err != nil {
		internalError(w, h.log, err, "encode catalog export")
		return
	}
	h.download(w, "json", "application/json", buf.Bytes())
}

// ExportCSV downloads the flattened catalog as mch_db_<date>.csv.
func (h *CatalogHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := catalog.EncodeCSV(&buf, h.svc.ExportCatalog()); err != nil {
		internalError(w, h.log, err, "encode catalog csv")
		return
	}
	h.download(w, "csv", "text/csv", buf.Bytes())
}

func (h *CatalogHandler) download(w http.ResponseWriter, ext, contentType string, body []byte) {
	name := catalog.ExportFileName(h.now(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}
