package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// ErrInvalidImport is the root of every import validation failure.
var ErrInvalidImport = errors.New("invalid catalog import")

// ValidationError reports why an import payload was rejected. Index is -1
// when the document as a whole is malformed.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid catalog import: %s", e.Reason)
	}
	return fmt.Sprintf("invalid catalog import: item[%d]: %s", e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidImport }

// DecodeImport parses and validates an import document: a JSON array whose
// every element has a non-empty name and a price. Any failure rejects the
// whole document, so nothing is returned for partial application.
func DecodeImport(r io.Reader) ([]Item, error) {
	raw, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(raw))
	for i, m := range raw {
		if m == nil {
			return nil, &ValidationError{Index: i, Reason: "item must be an object"}
		}
		name, ok := m["name"].(string)
		if !ok || name == "" {
			return nil, &ValidationError{Index: i, Reason: "name is required"}
		}
		if price, ok := m["price"]; !ok || price == nil {
			return nil, &ValidationError{Index: i, Reason: "price is required"}
		}
		items[i] = itemFromMap(m)
	}
	return items, nil
}

// DecodeCatalog parses a catalog load document. It is lenient about
// individual entries; only a document that is not a JSON array of objects
// fails.
func DecodeCatalog(r io.Reader) ([]Item, error) {
	raw, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		items = append(items, itemFromMap(m))
	}
	return items, nil
}

func decodeArray(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Index: -1, Reason: "expected a JSON array of objects: " + err.Error()}
	}
	return raw, nil
}

// EncodeExport writes the flattened catalog as pretty-printed JSON.
func EncodeExport(w io.Writer, items []Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if items == nil {
		items = []Item{}
	}
	return enc.Encode(items)
}

type csvRow struct {
	ID       int64  `csv:"id"`
	Name     string `csv:"name"`
	Price    string `csv:"price"`
	Type     string `csv:"type"`
	Category string `csv:"category"`
	Strength string `csv:"strength"`
}

// EncodeCSV writes the flattened catalog as CSV with a header row.
func EncodeCSV(w io.Writer, items []Item) error {
	rows := make([]*csvRow, len(items))
	for i, it := range items {
		rows[i] = &csvRow{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price.StringFixed(2),
			Type:     it.Type,
			Category: it.Category,
			Strength: it.Strength,
		}
	}
	return gocsv.Marshal(rows, w)
}

// ExportFileName follows the mch_db_<ISO-date>.<ext> convention.
func ExportFileName(t time.Time, ext string) string {
	return fmt.Sprintf("mch_db_%s.%s", t.Format(time.DateOnly), strings.TrimPrefix(ext, "."))
}
