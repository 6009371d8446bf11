package settings

import (
	"errors"
	"slices"
	"testing"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }

func navIDs(s AppSettings) []string {
	ids := make([]string, len(s.NavButtons))
	for i, b := range s.NavButtons {
		ids[i] = b.ID
	}
	return ids
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if d.Title() != "MCH Billing System" {
		t.Errorf("title: got %q", d.Title())
	}
}

func TestDefaultsAreFresh(t *testing.T) {
	a := Defaults()
	a.NavButtons[0].Label = "changed"
	if Defaults().NavButtons[0].Label != "HOME" {
		t.Error("Defaults must return a fresh copy")
	}
}

func TestValidateHSL(t *testing.T) {
	valid := []string{"160 84% 39%", "0 0% 0%", "360 100% 100%", " 12.5 50.5% 20% "}
	for _, v := range valid {
		if err := ValidateHSL(v); err != nil {
			t.Errorf("%q: unexpected %v", v, err)
		}
	}
	invalid := []string{"", "#ff0000", "160 84 39", "361 50% 50%", "10 101% 5%", "hsl(1,2%,3%)"}
	for _, v := range invalid {
		if err := ValidateHSL(v); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("%q: got %v, want ErrInvalidColor", v, err)
		}
	}
}

func TestSetColor(t *testing.T) {
	s := Defaults()
	if err := s.SetColor("accent", "200 50% 50%"); err != nil {
		t.Fatal(err)
	}
	if s.Colors.Accent != "200 50% 50%" {
		t.Errorf("accent: got %q", s.Colors.Accent)
	}
	if err := s.SetColor("sparkle", "1 1% 1%"); !errors.Is(err, ErrInvalidColorKey) {
		t.Errorf("unknown key: got %v", err)
	}
	if err := s.SetColor("primary", "red"); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("bad value: got %v", err)
	}
}

func TestNavButtons(t *testing.T) {
	s := Defaults()

	if err := s.UpdateNavButton("pricing", NavButtonPatch{Visible: boolPtr(false), Label: strPtr("PRICES")}); err != nil {
		t.Fatal(err)
	}
	if len(s.VisibleNavButtons()) != 3 {
		t.Errorf("visible: got %d, want 3", len(s.VisibleNavButtons()))
	}
	if s.NavButtons[3].Label != "PRICES" || s.NavButtons[3].Icon != "Tags" {
		t.Errorf("patch applied wrongly: %+v", s.NavButtons[3])
	}
	if err := s.UpdateNavButton("nope", NavButtonPatch{}); !errors.Is(err, ErrNavButtonNotFound) {
		t.Errorf("unknown id: got %v", err)
	}

	if err := s.AddNavButton(NavButton{ID: "reports", Label: "REPORTS", Visible: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNavButton(NavButton{ID: "reports", Label: "AGAIN"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: got %v", err)
	}
	if err := s.AddNavButton(NavButton{Label: "x"}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("empty id: got %v", err)
	}

	if err := s.MoveNavButton("reports", 0); err != nil {
		t.Fatal(err)
	}
	want := []string{"reports", "home", "outpatient", "inpatient", "pricing"}
	if !slices.Equal(navIDs(s), want) {
		t.Errorf("after move: got %v, want %v", navIDs(s), want)
	}
	if err := s.MoveNavButton("reports", 99); err != nil {
		t.Fatal(err)
	}
	if navIDs(s)[4] != "reports" {
		t.Errorf("clamped move: got %v", navIDs(s))
	}

	s.RemoveNavButton("reports")
	s.RemoveNavButton("reports")
	if len(s.NavButtons) != 4 {
		t.Errorf("after remove: got %d", len(s.NavButtons))
	}
}

func TestCategories(t *testing.T) {
	s := Defaults()

	if err := s.AddCategory(Category{ID: "ward", Name: "Ward", Visible: true, Type: "inpatient"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCategory(Category{ID: "ward"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: got %v", err)
	}
	if err := s.AddCategory(Category{ID: "bad", Type: "everywhere"}); !errors.Is(err, ErrInvalidCatType) {
		t.Errorf("bad type: got %v", err)
	}

	if err := s.UpdateCategory("lab", CategoryPatch{Type: strPtr("outpatient")}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateCategory("vitamins", CategoryPatch{Visible: boolPtr(false)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateCategory("lab", CategoryPatch{Type: strPtr("nowhere")}); !errors.Is(err, ErrInvalidCatType) {
		t.Errorf("bad type patch: got %v", err)
	}
	if err := s.UpdateCategory("nope", CategoryPatch{}); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("unknown id: got %v", err)
	}

	inpatient := s.CategoriesFor("inpatient")
	for _, c := range inpatient {
		if c.ID == "lab" || c.ID == "vitamins" {
			t.Errorf("%s should not be listed for inpatient", c.ID)
		}
	}
	if !slices.ContainsFunc(inpatient, func(c Category) bool { return c.ID == "ward" }) {
		t.Error("ward missing from inpatient categories")
	}

	s.RemoveCategory("ward")
	if slices.ContainsFunc(s.Categories, func(c Category) bool { return c.ID == "ward" }) {
		t.Error("ward not removed")
	}
}

func TestValidate_RejectsBadColor(t *testing.T) {
	s := Defaults()
	s.Colors.Muted = "grey"
	if err := s.Validate(); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("got %v, want ErrInvalidColor", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := Defaults()
	s.SetLogo(strPtr("data:image/png;base64,AAAA"))
	c := s.Clone()
	c.NavButtons[0].Label = "x"
	*c.LogoURL = "changed"
	if s.NavButtons[0].Label != "HOME" || *s.LogoURL != "data:image/png;base64,AAAA" {
		t.Error("Clone shares state with the original")
	}
}

func TestMerge(t *testing.T) {
	merged, err := Merge([]byte(`{"appName":"City Hospital","colors":{"primary":"10 50% 50%"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if merged.AppName != "City Hospital" || merged.AppSubtitle != "System" {
		t.Errorf("branding: %q %q", merged.AppName, merged.AppSubtitle)
	}
	if merged.Colors.Primary != "10 50% 50%" || merged.Colors.Accent != "160 60% 45%" {
		t.Errorf("colors not merged over defaults: %+v", merged.Colors)
	}
	if len(merged.NavButtons) != 4 || len(merged.Categories) != 8 {
		t.Errorf("missing lists should keep defaults")
	}

	merged, err = Merge([]byte(`{"navButtons":null}`))
	if err != nil || len(merged.NavButtons) != 4 {
		t.Errorf("null list: got %d buttons, err %v", len(merged.NavButtons), err)
	}

	merged, err = Merge([]byte(`{not json`))
	if err == nil {
		t.Error("expected decode error")
	}
	if merged.AppName != "MCH Billing" {
		t.Errorf("corrupt blob should yield defaults, got %q", merged.AppName)
	}
}
