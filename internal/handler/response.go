package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/ledger"
	"github.com/mch-billing/terminal/internal/money"
	"github.com/mch-billing/terminal/internal/pricing"
	"github.com/mch-billing/terminal/internal/service"
)

// maxBodyBytes caps request bodies; settings carry data-URL images.
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// --- Catalog ---

type itemResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Strength string `json:"strength"`
	Mode     string `json:"mode"`
}

func toItemResponse(it catalog.Item) itemResponse {
	return itemResponse{
		ID:       it.ID,
		Name:     it.Name,
		Price:    money.Fixed(it.Price),
		Type:     it.Type,
		Category: it.CategoryOrDefault(),
		Strength: it.Strength,
		Mode:     pricing.ModeFor(it).String(),
	}
}

func toItemResponses(items []catalog.Item) []itemResponse {
	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}
	return resp
}

// --- Bill ---

type lineResponse struct {
	Index          int     `json:"index"`
	ItemID         int64   `json:"item_id"`
	Name           string  `json:"name"`
	Price          string  `json:"price"`
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Strength       string  `json:"strength"`
	Qty            string  `json:"qty"`
	Subtotal       string  `json:"subtotal"`
	Duration       *int64  `json:"duration"`
	Frequency      *string `json:"frequency"`
	FrequencyLabel string  `json:"frequency_label,omitempty"`
	DosePerTime    *string `json:"dose_per_time"`
	Route          string  `json:"route,omitempty"`
}

func toLineResponse(index int, l ledger.Line) lineResponse {
	resp := lineResponse{
		Index:    index,
		ItemID:   l.ItemID,
		Name:     l.Name,
		Price:    money.Fixed(l.Price),
		Type:     l.Type,
		Category: l.Category,
		Strength: l.Strength,
		Qty:      l.Qty.String(),
		Subtotal: money.Fixed(l.Subtotal),
		Duration: l.Duration,
		Route:    l.Route,
	}
	if l.Frequency != nil {
		f := l.Frequency.String()
		resp.Frequency = &f
		resp.FrequencyLabel = pricing.FrequencyLabel(*l.Frequency)
	}
	if l.DosePerTime != nil {
		d := l.DosePerTime.String()
		resp.DosePerTime = &d
	}
	return resp
}

func toIndexedResponses(lines []ledger.IndexedLine) []lineResponse {
	resp := make([]lineResponse, len(lines))
	for i, il := range lines {
		resp[i] = toLineResponse(il.Index, il.Line)
	}
	return resp
}

type groupResponse struct {
	Category string         `json:"category"`
	Lines    []lineResponse `json:"lines"`
	Subtotal string         `json:"subtotal"`
}

type billResponse struct {
	SessionID       string          `json:"session_id"`
	State           string          `json:"state"`
	CanCommit       bool            `json:"can_commit"`
	Lines           []lineResponse  `json:"lines"`
	Groups          []groupResponse `json:"groups"`
	ActiveMedicines []lineResponse  `json:"active_medicines"`
	Total           string          `json:"total"`
	FormattedTotal  string          `json:"formatted_total"`
}

func toBillResponse(b service.BillSnapshot) billResponse {
	lines := make([]lineResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = toLineResponse(i, l)
	}
	groups := make([]groupResponse, len(b.Groups))
	for i, g := range b.Groups {
		groups[i] = groupResponse{
			Category: g.Category,
			Lines:    toIndexedResponses(g.Lines),
			Subtotal: money.Fixed(g.Subtotal),
		}
	}
	return billResponse{
		SessionID:       b.SessionID.String(),
		State:           string(b.State),
		CanCommit:       b.State == ledger.StateNonEmpty,
		Lines:           lines,
		Groups:          groups,
		ActiveMedicines: toIndexedResponses(b.ActiveMedicines),
		Total:           money.Fixed(b.Total),
		FormattedTotal:  money.Format(b.Total),
	}
}

type quoteResponse struct {
	Item              itemResponse `json:"item"`
	Mode              string       `json:"mode"`
	UnitPrice         string       `json:"unit_price"`
	TotalQty          string       `json:"total_qty"`
	Subtotal          string       `json:"subtotal"`
	FormattedSubtotal string       `json:"formatted_subtotal"`
	DosePerTime       string       `json:"dose_per_time,omitempty"`
	Frequency         string       `json:"frequency,omitempty"`
	FrequencyLabel    string       `json:"frequency_label,omitempty"`
	Days              *int64       `json:"days,omitempty"`
	Route             string       `json:"route,omitempty"`
}

func toQuoteResponse(item catalog.Item, q pricing.Quote) quoteResponse {
	resp := quoteResponse{
		Item:              toItemResponse(item),
		Mode:              q.Mode.String(),
		UnitPrice:         money.Fixed(q.UnitPrice),
		TotalQty:          q.TotalQty.String(),
		Subtotal:          money.Fixed(q.Subtotal),
		FormattedSubtotal: money.Format(q.Subtotal),
	}
	if q.Mode == pricing.ModeDosage {
		days := q.Days
		resp.DosePerTime = q.DosePerTime.String()
		resp.Frequency = q.Frequency.String()
		resp.FrequencyLabel = pricing.FrequencyLabel(q.Frequency)
		resp.Days = &days
		resp.Route = q.Route
	}
	return resp
}

type receiptResponse struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	LineCount      int            `json:"line_count"`
	Lines          []lineResponse `json:"lines"`
	Total          string         `json:"total"`
	FormattedTotal string         `json:"formatted_total"`
	CommittedAt    time.Time      `json:"committed_at"`
}

func toReceiptResponse(rc service.Receipt) receiptResponse {
	lines := make([]lineResponse, len(rc.Lines))
	for i, l := range rc.Lines {
		lines[i] = toLineResponse(i, l)
	}
	return receiptResponse{
		ID:             rc.ID.String(),
		SessionID:      rc.SessionID.String(),
		LineCount:      len(rc.Lines),
		Lines:          lines,
		Total:          money.Fixed(rc.Total),
		FormattedTotal: rc.FormattedTotal,
		CommittedAt:    rc.CommittedAt,
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
