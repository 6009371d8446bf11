package settings

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mch-billing/terminal/internal/enum"
)

// Errors returned by settings mutations.
var (
	ErrNavButtonNotFound = errors.New("nav button not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateID       = errors.New("id already exists")
	ErrEmptyID           = errors.New("id is required")
	ErrEmptyLabel        = errors.New("label is required")
	ErrInvalidColorKey   = errors.New("unknown color key")
	ErrInvalidColor      = errors.New(`color must be an HSL triple like "160 84% 39%"`)
	ErrInvalidCatType    = errors.New("category type must be outpatient, inpatient or both")
)

// NavButton is one entry of the top navigation bar.
type NavButton struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Icon    string `json:"icon"`
	Visible bool   `json:"visible"`
}

// NavButtonPatch carries the fields an update changes; nil fields are kept.
type NavButtonPatch struct {
	Label   *string `json:"label,omitempty"`
	Icon    *string `json:"icon,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
}

// Category is a display category tile and the views it appears in.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Visible bool   `json:"visible"`
	Type    string `json:"type"`
}

// CategoryPatch carries the fields an update changes; nil fields are kept.
type CategoryPatch struct {
	Name    *string `json:"name,omitempty"`
	Icon    *string `json:"icon,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
	Type    *string `json:"type,omitempty"`
}

// Colors are theme colors, each an HSL triple "H S% L%".
type Colors struct {
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
	Accent      string `json:"accent"`
	Background  string `json:"background"`
	Foreground  string `json:"foreground"`
	Muted       string `json:"muted"`
	Destructive string `json:"destructive"`
}

// AppSettings is the whole operator settings blob.
type AppSettings struct {
	AppName     string      `json:"appName"`
	AppSubtitle string      `json:"appSubtitle"`
	LogoURL     *string     `json:"logoUrl"`
	FaviconURL  *string     `json:"faviconUrl"`
	NavButtons  []NavButton `json:"navButtons"`
	Categories  []Category  `json:"categories"`
	Colors      Colors      `json:"colors"`
}

// Defaults returns a fresh copy of the factory settings.
func Defaults() AppSettings {
	return AppSettings{
		AppName:     "MCH Billing",
		AppSubtitle: "System",
		NavButtons: []NavButton{
			{ID: enum.ViewHome, Label: "HOME", Icon: "Home", Visible: true},
			{ID: enum.ViewOutpatient, Label: "OUTPATIENT", Icon: "UserCheck", Visible: true},
			{ID: enum.ViewInpatient, Label: "INPATIENT", Icon: "BedDouble", Visible: true},
			{ID: enum.ViewPricing, Label: "PRICING", Icon: "Tags", Visible: true},
		},
		Categories: []Category{
			{ID: "antibiotics", Name: "Antibiotics", Icon: "Pill", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "analgesics", Name: "Analgesics", Icon: "Thermometer", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "cardiovascular", Name: "Cardiovascular", Icon: "Heart", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "respiratory", Name: "Respiratory", Icon: "Wind", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "gastrointestinal", Name: "Gastrointestinal", Icon: "Apple", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "vitamins", Name: "Vitamins", Icon: "Sparkles", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "services", Name: "Services", Icon: "Stethoscope", Visible: true, Type: enum.SettingsCategoryBoth},
			{ID: "lab", Name: "Lab Tests", Icon: "FlaskConical", Visible: true, Type: enum.SettingsCategoryBoth},
		},
		Colors: Colors{
			Primary:     "160 84% 39%",
			Secondary:   "160 30% 20%",
			Accent:      "160 60% 45%",
			Background:  "180 20% 8%",
			Foreground:  "160 20% 95%",
			Muted:       "180 15% 15%",
			Destructive: "0 62% 50%",
		},
	}
}

// Title is the browser title derived from the branding strings.
func (s AppSettings) Title() string {
	return strings.TrimSpace(s.AppName + " " + s.AppSubtitle)
}

// Clone returns a deep copy.
func (s AppSettings) Clone() AppSettings {
	out := s
	out.NavButtons = slices.Clone(s.NavButtons)
	out.Categories = slices.Clone(s.Categories)
	if s.LogoURL != nil {
		v := *s.LogoURL
		out.LogoURL = &v
	}
	if s.FaviconURL != nil {
		v := *s.FaviconURL
		out.FaviconURL = &v
	}
	return out
}

// Validate checks every color and category type.
func (s AppSettings) Validate() error {
	for key, value := range s.Colors.byKey() {
		if err := ValidateHSL(value); err != nil {
			return fmt.Errorf("colors.%s: %w", key, err)
		}
	}
	for i, c := range s.Categories {
		if !validCategoryType(c.Type) {
			return fmt.Errorf("categories[%d]: %w", i, ErrInvalidCatType)
		}
	}
	return nil
}

// VisibleNavButtons lists the nav buttons to render, in order.
func (s AppSettings) VisibleNavButtons() []NavButton {
	var out []NavButton
	for _, b := range s.NavButtons {
		if b.Visible {
			out = append(out, b)
		}
	}
	return out
}

// CategoriesFor lists the visible categories configured for a view
// (outpatient or inpatient); "both" matches either.
func (s AppSettings) CategoriesFor(view string) []Category {
	var out []Category
	for _, c := range s.Categories {
		if c.Visible && (c.Type == view || c.Type == enum.SettingsCategoryBoth) {
			out = append(out, c)
		}
	}
	return out
}

// UpdateAppInfo sets the branding strings.
func (s *AppSettings) UpdateAppInfo(name, subtitle string) {
	s.AppName = name
	s.AppSubtitle = subtitle
}

// SetLogo sets or, with nil, clears the logo image data.
func (s *AppSettings) SetLogo(url *string) { s.LogoURL = url }

// SetFavicon sets or, with nil, clears the favicon image data.
func (s *AppSettings) SetFavicon(url *string) { s.FaviconURL = url }

func (s *AppSettings) UpdateNavButton(id string, patch NavButtonPatch) error {
	idx := slices.IndexFunc(s.NavButtons, func(b NavButton) bool { return b.ID == id })
	if idx < 0 {
		return ErrNavButtonNotFound
	}
	b := &s.NavButtons[idx]
	if patch.Label != nil {
		b.Label = *patch.Label
	}
	if patch.Icon != nil {
		b.Icon = *patch.Icon
	}
	if patch.Visible != nil {
		b.Visible = *patch.Visible
	}
	return nil
}

func (s *AppSettings) AddNavButton(b NavButton) error {
	if b.ID == "" {
		return ErrEmptyID
	}
	if b.Label == "" {
		return ErrEmptyLabel
	}
	if slices.ContainsFunc(s.NavButtons, func(x NavButton) bool { return x.ID == b.ID }) {
		return ErrDuplicateID
	}
	s.NavButtons = append(s.NavButtons, b)
	return nil
}

// RemoveNavButton is a no-op for unknown ids.
func (s *AppSettings) RemoveNavButton(id string) {
	s.NavButtons = slices.DeleteFunc(s.NavButtons, func(b NavButton) bool { return b.ID == id })
}

// MoveNavButton moves a button to position to, clamped to the list bounds.
func (s *AppSettings) MoveNavButton(id string, to int) error {
	idx := slices.IndexFunc(s.NavButtons, func(b NavButton) bool { return b.ID == id })
	if idx < 0 {
		return ErrNavButtonNotFound
	}
	b := s.NavButtons[idx]
	s.NavButtons = slices.Delete(s.NavButtons, idx, idx+1)
	to = min(max(to, 0), len(s.NavButtons))
	s.NavButtons = slices.Insert(s.NavButtons, to, b)
	return nil
}

func (s *AppSettings) UpdateCategory(id string, patch CategoryPatch) error {
	idx := slices.IndexFunc(s.Categories, func(c Category) bool { return c.ID == id })
	if idx < 0 {
		return ErrCategoryNotFound
	}
	if patch.Type != nil && !validCategoryType(*patch.Type) {
		return ErrInvalidCatType
	}
	c := &s.Categories[idx]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.Visible != nil {
		c.Visible = *patch.Visible
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	return nil
}

func (s *AppSettings) AddCategory(c Category) error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.Type == "" {
		c.Type = enum.SettingsCategoryBoth
	}
	if !validCategoryType(c.Type) {
		return ErrInvalidCatType
	}
	if slices.ContainsFunc(s.Categories, func(x Category) bool { return x.ID == c.ID }) {
		return ErrDuplicateID
	}
	s.Categories = append(s.Categories, c)
	return nil
}

// RemoveCategory is a no-op for unknown ids.
func (s *AppSettings) RemoveCategory(id string) {
	s.Categories = slices.DeleteFunc(s.Categories, func(c Category) bool { return c.ID == id })
}

// SetColor sets one theme color by its JSON key (e.g. "primary").
func (s *AppSettings) SetColor(key, value string) error {
	if err := ValidateHSL(value); err != nil {
		return err
	}
	switch key {
	case "primary":
		s.Colors.Primary = value
	case "secondary":
		s.Colors.Secondary = value
	case "accent":
		s.Colors.Accent = value
	case "background":
		s.Colors.Background = value
	case "foreground":
		s.Colors.Foreground = value
	case "muted":
		s.Colors.Muted = value
	case "destructive":
		s.Colors.Destructive = value
	default:
		return ErrInvalidColorKey
	}
	return nil
}

func (c Colors) byKey() map[string]string {
	return map[string]string{
		"primary":     c.Primary,
		"secondary":   c.Secondary,
		"accent":      c.Accent,
		"background":  c.Background,
		"foreground":  c.Foreground,
		"muted":       c.Muted,
		"destructive": c.Destructive,
	}
}

var hslPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)%\s+(\d+(?:\.\d+)?)%\s*$`)

// ValidateHSL accepts "H S% L%" with 0 <= H <= 360 and 0 <= S, L <= 100.
func ValidateHSL(value string) error {
	m := hslPattern.FindStringSubmatch(value)
	if m == nil {
		return ErrInvalidColor
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	sat, _ := strconv.ParseFloat(m[2], 64)
	l, _ := strconv.ParseFloat(m[3], 64)
	if h > 360 || sat > 100 || l > 100 {
		return ErrInvalidColor
	}
	return nil
}

func validCategoryType(t string) bool {
	switch t {
	case enum.SettingsCategoryOutpatient, enum.SettingsCategoryInpatient, enum.SettingsCategoryBoth:
		return true
	}
	return false
}
