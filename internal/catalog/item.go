package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mch-billing/terminal/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Errors returned when validating catalog form input.
var (
	ErrEmptyName     = errors.New("name is required")
	ErrInvalidPrice  = errors.New("price must be a number")
	ErrNegativePrice = errors.New("price must not be negative")
)

// Item is a priced catalog entry (medicine, service, test).
// ID is zero until the store assigns one.
type Item struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Type     string
	Category string
	Strength string
}

// CategoryOrDefault returns the bucket key the item belongs to.
func (it Item) CategoryOrDefault() string {
	return categoryKey(it.Category)
}

// Validate checks the rules the pricing-database form enforces.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyName
	}
	if it.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

type itemJSON struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Type     string      `json:"type,omitempty"`
	Category string      `json:"category,omitempty"`
	Strength string      `json:"strength,omitempty"`
}

// MarshalJSON writes price as a bare JSON number so exported files stay
// compatible with the load/import format.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:       it.ID,
		Name:     it.Name,
		Price:    json.Number(it.Price.String()),
		Type:     it.Type,
		Category: it.Category,
		Strength: it.Strength,
	})
}

// UnmarshalJSON accepts a price given either as a number or as a
// numeric-looking string.
func (it *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("catalog item must be an object")
	}
	*it = itemFromMap(raw)
	return nil
}

func itemFromMap(raw map[string]any) Item {
	return Item{
		ID:       coerceID(raw["id"]),
		Name:     cast.ToString(raw["name"]),
		Price:    CoercePrice(raw["price"]),
		Type:     cast.ToString(raw["type"]),
		Category: cast.ToString(raw["category"]),
		Strength: cast.ToString(raw["strength"]),
	}
}

// coerceID returns 0 (unassigned) for missing, non-numeric or non-positive ids.
func coerceID(v any) int64 {
	if v == nil {
		return 0
	}
	if n, ok := v.(json.Number); ok {
		if id, err := n.Int64(); err == nil {
			return max(id, 0)
		}
		if f, err := n.Float64(); err == nil {
			return max(int64(f), 0)
		}
		return 0
	}
	id, err := cast.ToInt64E(v)
	if err != nil {
		return 0
	}
	return max(id, 0)
}

// CoercePrice normalises a price supplied as a number or text to a decimal.
// Numbers are taken as-is; only text goes through ParsePrice. Anything that
// fails to parse, and any negative number, is zero.
func CoercePrice(v any) decimal.Decimal {
	var d decimal.Decimal
	switch p := v.(type) {
	case nil, bool:
		return decimal.Zero
	case decimal.Decimal:
		d = p
	case string:
		return ParsePrice(p)
	case json.Number:
		n, err := decimal.NewFromString(p.String())
		if err != nil {
			return decimal.Zero
		}
		d = n
	case float64:
		d = decimal.NewFromFloat(p)
	case float32:
		d = decimal.NewFromFloat32(p)
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return decimal.Zero
		}
		d = decimal.NewFromInt(n)
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParsePrice strips every character that is not a digit or a dot, then reads
// the longest leading decimal number ("৳ 1,200.50" -> 1200.50, "1.2.3" -> 1.2).
func ParsePrice(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)

	intPart, fracPart, seenDot := "", "", false
	for _, r := range cleaned {
		if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
			continue
		}
		if seenDot {
			fracPart += string(r)
		} else {
			intPart += string(r)
		}
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero
	}
	if intPart == "" {
		intPart = "0"
	}
	num := intPart
	if fracPart != "" {
		num += "." + fracPart
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseFormPrice parses a price typed into the catalog form. Unlike
// ParsePrice it is strict: the whole string must be a non-negative number.
func ParseFormPrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativePrice
	}
	return d, nil
}

func categoryKey(category string) string {
	if category == "" {
		return enum.DefaultCategory
	}
	return category
}
