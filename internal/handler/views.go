package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mch-billing/terminal/internal/service"
	"github.com/mch-billing/terminal/internal/settings"
)

// ViewService is satisfied by *service.Terminal.
type ViewService interface {
	View(view string) (service.ViewInfo, error)
}

// SettingsReader is satisfied by *settings.Repository.
type SettingsReader interface {
	Current() settings.AppSettings
}

// ViewHandler describes a billing view: its catalog categories, its session
// banner and the category tiles configured in settings.
type ViewHandler struct {
	views    ViewService
	settings SettingsReader
}

func NewViewHandler(views ViewService, settings SettingsReader) *ViewHandler {
	return &ViewHandler{views: views, settings: settings}
}

// RegisterRoutes registers view endpoints. Expected to be mounted at /views.
func (h *ViewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{view}", h.Get)
}

type sessionFieldResponse struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type viewResponse struct {
	View       string                 `json:"view"`
	Title      string                 `json:"title"`
	Categories []string               `json:"categories"`
	Session    []sessionFieldResponse `json:"session"`
	Tiles      []settings.Category    `json:"tiles"`
}

func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.views.View(chi.URLParam(r, "view"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownView) {
			writeError(w, http.StatusNotFound, "unknown view")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cfg := h.settings.Current()
	session := make([]sessionFieldResponse, len(info.Session))
	for i, f := range info.Session {
		session[i] = sessionFieldResponse{Label: f.Label, Value: f.Value}
	}
	tiles := cfg.CategoriesFor(info.View)
	if tiles == nil {
		tiles = []settings.Category{}
	}

	writeJSON(w, http.StatusOK, viewResponse{
		View:       info.View,
		Title:      cfg.Title(),
		Categories: info.Categories,
		Session:    session,
		Tiles:      tiles,
	})
}
