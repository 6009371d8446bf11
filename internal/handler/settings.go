package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/enum"
	"github.com/mch-billing/terminal/internal/service"
	"github.com/mch-billing/terminal/internal/settings"
)

// SettingsRepository defines the repository methods needed by settings
// handlers. Satisfied by *settings.Repository.
type SettingsRepository interface {
	Current() settings.AppSettings
	Update(ctx context.Context, fn func(*settings.AppSettings) error) (settings.AppSettings, error)
	Replace(ctx context.Context, s settings.AppSettings) (settings.AppSettings, error)
	Reset(ctx context.Context) (settings.AppSettings, error)
}

// SettingsHandler serves the operator settings editor.
type SettingsHandler struct {
	repo SettingsRepository
	pub  service.Publisher
	log  zerolog.Logger
}

func NewSettingsHandler(repo SettingsRepository, pub service.Publisher, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, pub: pub, log: log}
}

// RegisterRoutes registers settings endpoints. Expected to be mounted at /settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Replace)
	r.Post("/reset", h.Reset)
	r.Patch("/app-info", h.UpdateAppInfo)
	r.Put("/logo", h.SetLogo)
	r.Put("/favicon", h.SetFavicon)
	r.Put("/colors/{key}", h.SetColor)

	r.Post("/nav-buttons", h.AddNavButton)
	r.Patch("/nav-buttons/{id}", h.UpdateNavButton)
	r.Delete("/nav-buttons/{id}", h.RemoveNavButton)
	r.Post("/nav-buttons/{id}/move", h.MoveNavButton)

	r.Post("/categories", h.AddCategory)
	r.Patch("/categories/{id}", h.UpdateCategory)
	r.Delete("/categories/{id}", h.RemoveCategory)
}

// --- Request / Response types ---

type settingsResponse struct {
	settings.AppSettings
	Title          string               `json:"title"`
	VisibleButtons []settings.NavButton `json:"visibleNavButtons"`
}

func toSettingsResponse(s settings.AppSettings) settingsResponse {
	visible := s.VisibleNavButtons()
	if visible == nil {
		visible = []settings.NavButton{}
	}
	return settingsResponse{AppSettings: s, Title: s.Title(), VisibleButtons: visible}
}

type appInfoRequest struct {
	AppName     *string `json:"appName"`
	AppSubtitle *string `json:"appSubtitle"`
}

// imageRequest sets an image data URL; a null url clears it.
type imageRequest struct {
	URL *string `json:"url"`
}

type colorRequest struct {
	Value string `json:"value"`
}

type moveRequest struct {
	To int `json:"to"`
}

// --- Helpers ---

// apply runs fn through the repository and writes the resulting settings,
// mapping validation and lookup errors to client errors.
func (h *SettingsHandler) apply(w http.ResponseWriter, r *http.Request, status int, fn func(*settings.AppSettings) error) {
	s, err := h.repo.Update(r.Context(), fn)
	h.respond(w, status, s, err)
}

func (h *SettingsHandler) respond(w http.ResponseWriter, status int, s settings.AppSettings, err error) {
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrNavButtonNotFound), errors.Is(err, settings.ErrCategoryNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, settings.ErrDuplicateID):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, settings.ErrEmptyID), errors.Is(err, settings.ErrEmptyLabel),
			errors.Is(err, settings.ErrInvalidColorKey), errors.Is(err, settings.ErrInvalidColor),
			errors.Is(err, settings.ErrInvalidCatType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, h.log, err, "save settings")
		}
		return
	}

	if h.pub != nil {
		if err := h.pub.Publish(enum.TopicSettings, enum.EventSettingsChanged, s); err != nil {
			h.log.Warn().Err(err).Msg("publish settings change")
		}
	}
	writeJSON(w, status, toSettingsResponse(s))
}

// --- Handlers ---

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsResponse(h.repo.Current()))
}

// Replace stores a whole settings document; missing fields keep defaults.
func (h *SettingsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	next, err := settings.Merge(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.repo.Replace(r.Context(), next)
	h.respond(w, http.StatusOK, s, err)
}

func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Reset(r.Context())
	h.respond(w, http.StatusOK, s, err)
}

func (h *SettingsHandler) UpdateAppInfo(w http.ResponseWriter, r *http.Request) {
	var req appInfoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		name, subtitle := s.AppName, s.AppSubtitle
		if req.AppName != nil {
			name = *req.AppName
		}
		if req.AppSubtitle != nil {
			subtitle = *req.AppSubtitle
		}
		s.UpdateAppInfo(name, subtitle)
		return nil
	})
}

func (h *SettingsHandler) SetLogo(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		s.SetLogo(req.URL)
		return nil
	})
}

func (h *SettingsHandler) SetFavicon(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		s.SetFavicon(req.URL)
		return nil
	})
}

func (h *SettingsHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := chi.URLParam(r, "key")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		return s.SetColor(key, req.Value)
	})
}

func (h *SettingsHandler) AddNavButton(w http.ResponseWriter, r *http.Request) {
	var req settings.NavButton
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, http.StatusCreated, func(s *settings.AppSettings) error {
		return s.AddNavButton(req)
	})
}

func (h *SettingsHandler) UpdateNavButton(w http.ResponseWriter, r *http.Request) {
	var req settings.NavButtonPatch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		return s.UpdateNavButton(id, req)
	})
}

func (h *SettingsHandler) RemoveNavButton(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		s.RemoveNavButton(id)
		return nil
	})
}

func (h *SettingsHandler) MoveNavButton(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		return s.MoveNavButton(id, req.To)
	})
}

func (h *SettingsHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req settings.Category
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, http.StatusCreated, func(s *settings.AppSettings) error {
		return s.AddCategory(req)
	})
}

func (h *SettingsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req settings.CategoryPatch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		return s.UpdateCategory(id, req)
	})
}

func (h *SettingsHandler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.apply(w, r, http.StatusOK, func(s *settings.AppSettings) error {
		s.RemoveCategory(id)
		return nil
	})
}
