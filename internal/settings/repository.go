package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Repository is the explicit settings lifecycle: Load once at startup, then
// every change is applied in memory and saved immediately.
type Repository struct {
	store Store
	log   zerolog.Logger

	mu      sync.Mutex
	current AppSettings
}

// NewRepository returns a repository holding the defaults until Load runs.
func NewRepository(store Store, log zerolog.Logger) *Repository {
	return &Repository{store: store, log: log, current: Defaults()}
}

// Load reads the stored blob and merges it over the defaults so missing
// fields keep their default values. A missing or corrupt blob yields the
// defaults; only a storage failure is returned as an error, and the
// defaults stay in effect in that case too.
func (r *Repository) Load(ctx context.Context) (AppSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	blob, err := r.store.Get(ctx, Key)
	switch {
	case errors.Is(err, ErrNotFound):
		r.current = Defaults()
	case err != nil:
		r.current = Defaults()
		return r.current.Clone(), fmt.Errorf("load settings: %w", err)
	default:
		merged, mergeErr := Merge(blob)
		if mergeErr != nil {
			r.log.Warn().Err(mergeErr).Msg("stored settings unreadable, using defaults")
		}
		r.current = merged
	}
	return r.current.Clone(), nil
}

// Merge overlays a stored blob on the defaults. On a decode error the
// defaults are returned with the error.
func Merge(blob []byte) (AppSettings, error) {
	s := Defaults()
	if err := json.Unmarshal(blob, &s); err != nil {
		return Defaults(), err
	}
	d := Defaults()
	if s.NavButtons == nil {
		s.NavButtons = d.NavButtons
	}
	if s.Categories == nil {
		s.Categories = d.Categories
	}
	return s, nil
}

// Current returns a copy of the settings in effect.
func (r *Repository) Current() AppSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

// Update applies fn to a copy of the current settings, validates and saves
// the result. Nothing changes if fn, validation or the save fails.
func (r *Repository) Update(ctx context.Context, fn func(*AppSettings) error) (AppSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Clone()
	if err := fn(&next); err != nil {
		return r.current.Clone(), err
	}
	if err := next.Validate(); err != nil {
		return r.current.Clone(), err
	}
	if err := r.save(ctx, next); err != nil {
		return r.current.Clone(), err
	}
	r.current = next
	return next.Clone(), nil
}

// Replace swaps in a whole settings document.
func (r *Repository) Replace(ctx context.Context, s AppSettings) (AppSettings, error) {
	return r.Update(ctx, func(cur *AppSettings) error {
		*cur = s.Clone()
		return nil
	})
}

// Reset restores and saves the factory defaults.
func (r *Repository) Reset(ctx context.Context) (AppSettings, error) {
	return r.Replace(ctx, Defaults())
}

func (r *Repository) save(ctx context.Context, s AppSettings) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.store.Put(ctx, Key, blob); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	r.log.Debug().Str("key", Key).Int("bytes", len(blob)).Msg("settings saved")
	return nil
}
