package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/enum"
	"github.com/mch-billing/terminal/internal/ledger"
	"github.com/mch-billing/terminal/internal/money"
	"github.com/mch-billing/terminal/internal/pricing"
)

// Errors returned by the terminal service.
var (
	ErrItemNotFound = errors.New("catalog item not found")
	ErrEmptyBill    = errors.New("bill is empty")
	ErrUnknownView  = errors.New("unknown view")

	// ErrCatalogLoading rejects catalog writes until the initial load has
	// resolved, since the load replaces the whole store.
	ErrCatalogLoading = errors.New("catalog is loading")
)

// Publisher pushes change events to subscribed presentation clients.
// Satisfied by *ws.Hub.
type Publisher interface {
	Publish(topic, eventType string, payload any) error
}

// FetchFunc retrieves the initial catalog document.
type FetchFunc func(ctx context.Context) ([]catalog.Item, error)

// Terminal is the billing session: the catalog, the bill for the current
// patient and the session id. The catalog store and ledger are not
// goroutine-safe, so every call is serialised on mu.
type Terminal struct {
	mu        sync.Mutex
	catalog   *catalog.Store
	bill      *ledger.Ledger
	sessionID uuid.UUID
	loading   bool

	pub Publisher
	log zerolog.Logger
	now func() time.Time
}

func NewTerminal(pub Publisher, log zerolog.Logger) *Terminal {
	return &Terminal{
		catalog:   catalog.NewStore(),
		bill:      ledger.New(),
		sessionID: uuid.New(),
		pub:       pub,
		log:       log,
		now:       time.Now,
	}
}

// ── Catalog load ──

// BeginLoad marks the catalog as loading and fetches it in the background.
// The returned channel is closed once the load has resolved or failed.
func (t *Terminal) BeginLoad(ctx context.Context, fetch FetchFunc) <-chan struct{} {
	t.mu.Lock()
	t.loading = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.LoadCatalog(ctx, fetch) //nolint:errcheck
	}()
	return done
}

// LoadCatalog makes one attempt to fetch the catalog and replaces the store
// with the result. On failure the error is logged and the store is left as
// it was; there is no retry.
func (t *Terminal) LoadCatalog(ctx context.Context, fetch FetchFunc) error {
	t.mu.Lock()
	t.loading = true
	t.mu.Unlock()

	items, err := fetch(ctx)

	t.mu.Lock()
	t.loading = false
	if err != nil {
		t.mu.Unlock()
		t.log.Warn().Err(err).Msg("catalog load failed")
		return fmt.Errorf("load catalog: %w", err)
	}
	t.catalog.Load(items)
	evt := t.catalogEventLocked()
	t.mu.Unlock()

	t.log.Info().Int("items", evt.Items).Int("categories", len(evt.Categories)).Msg("catalog loaded")
	t.publish(enum.TopicCatalog, enum.EventCatalogLoaded, evt)
	return nil
}

// Loading reports whether the initial load is still in flight.
func (t *Terminal) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// ── Catalog ──

// CatalogSnapshot is the category -> items mapping plus the loading flag.
type CatalogSnapshot struct {
	Loading    bool
	Categories map[string][]catalog.Item
}

func (t *Terminal) Catalog() CatalogSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CatalogSnapshot{Loading: t.loading, Categories: t.catalog.Buckets()}
}

// CategoryLists are the two category projections.
type CategoryLists struct {
	Outpatient []string
	Inpatient  []string
}

func (t *Terminal) Categories() CategoryLists {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CategoryLists{
		Outpatient: t.catalog.OutpatientCategories(),
		Inpatient:  t.catalog.InpatientCategories(),
	}
}

// Search matches query against item names and category names.
func (t *Terminal) Search(query string) []catalog.Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.catalog.Search(query)
}

// CategoryItems lists one category, filtered by name. An unknown category
// is an empty list.
func (t *Terminal) CategoryItems(category, query string) []catalog.Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.catalog.Filter(category, query)
}

func (t *Terminal) Item(id int64) (catalog.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.catalog.Find(id)
	if !ok {
		return catalog.Item{}, ErrItemNotFound
	}
	return item, nil
}

// AddItem validates and stores a new item. An empty type defaults to
// "Medicine" as in the catalog form.
func (t *Terminal) AddItem(item catalog.Item) (catalog.Item, error) {
	if item.Type == "" {
		item.Type = enum.DefaultItemType
	}
	if err := item.Validate(); err != nil {
		return catalog.Item{}, err
	}

	t.mu.Lock()
	if t.loading {
		t.mu.Unlock()
		return catalog.Item{}, ErrCatalogLoading
	}
	stored := t.catalog.Add(item)
	evt := t.catalogEventLocked()
	t.mu.Unlock()

	t.publish(enum.TopicCatalog, enum.EventCatalogChanged, evt)
	return stored, nil
}

// UpdateItem replaces the item with id, moving it between categories when
// its category changed.
func (t *Terminal) UpdateItem(id int64, item catalog.Item) (catalog.Item, error) {
	if item.Type == "" {
		item.Type = enum.DefaultItemType
	}
	if err := item.Validate(); err != nil {
		return catalog.Item{}, err
	}

	t.mu.Lock()
	if t.loading {
		t.mu.Unlock()
		return catalog.Item{}, ErrCatalogLoading
	}
	existing, ok := t.catalog.Find(id)
	if !ok {
		t.mu.Unlock()
		return catalog.Item{}, ErrItemNotFound
	}
	item.ID = id
	item.Category = item.CategoryOrDefault()
	t.catalog.Update(item, existing.Category)
	evt := t.catalogEventLocked()
	t.mu.Unlock()

	t.publish(enum.TopicCatalog, enum.EventCatalogChanged, evt)
	return item, nil
}

func (t *Terminal) DeleteItem(id int64) error {
	t.mu.Lock()
	if t.loading {
		t.mu.Unlock()
		return ErrCatalogLoading
	}
	existing, ok := t.catalog.Find(id)
	if !ok {
		t.mu.Unlock()
		return ErrItemNotFound
	}
	t.catalog.Delete(existing)
	evt := t.catalogEventLocked()
	t.mu.Unlock()

	t.publish(enum.TopicCatalog, enum.EventCatalogChanged, evt)
	return nil
}

// ImportCatalog validates the whole document before touching the store, so
// a rejected import leaves the catalog unchanged. It returns the number of
// imported items.
func (t *Terminal) ImportCatalog(r io.Reader) (int, error) {
	items, err := catalog.DecodeImport(r)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	if t.loading {
		t.mu.Unlock()
		return 0, ErrCatalogLoading
	}
	t.catalog.Import(items)
	evt := t.catalogEventLocked()
	t.mu.Unlock()

	t.log.Info().Int("items", len(items)).Msg("catalog imported")
	t.publish(enum.TopicCatalog, enum.EventCatalogImported, evt)
	return len(items), nil
}

// ExportCatalog flattens the catalog for download.
func (t *Terminal) ExportCatalog() []catalog.Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.catalog.Export()
}

// ── Views ──

// SessionField is one label/value pair of a view's session banner.
type SessionField struct {
	Label string
	Value string
}

var sessionInfo = map[string][]SessionField{
	enum.ViewOutpatient: {{Label: "Patient", Value: "#OP-2025"}, {Label: "Location", Value: "BLOCK B"}},
	enum.ViewInpatient:  {{Label: "Ward", Value: "ACTIVE"}, {Label: "Priority", Value: "STANDARD"}},
}

// ViewInfo is what a billing view needs to render its chrome.
type ViewInfo struct {
	View       string
	Categories []string
	Session    []SessionField
}

// View describes the outpatient or inpatient billing view.
func (t *Terminal) View(view string) (ViewInfo, error) {
	fields, ok := sessionInfo[view]
	if !ok {
		return ViewInfo{}, ErrUnknownView
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	info := ViewInfo{View: view, Session: fields}
	if view == enum.ViewInpatient {
		info.Categories = t.catalog.InpatientCategories()
	} else {
		info.Categories = t.catalog.OutpatientCategories()
	}
	return info, nil
}

// ── Pricing ──

// RegimenInput is the raw dosing or quantity panel input. Values may be
// numbers or strings; nil fields take the panel default.
type RegimenInput struct {
	DoseQty   any
	Frequency any
	Days      any
	Route     string
	Units     any
}

// RegimenFor builds the pricing input for item from raw panel values.
func RegimenFor(item catalog.Item, in RegimenInput) pricing.Regimen {
	if pricing.ModeFor(item) == pricing.ModeQuantity {
		q := pricing.DefaultQuantity()
		if in.Units != nil {
			q.Units = cast.ToString(in.Units)
		}
		return q
	}

	d := pricing.DefaultDosage(item)
	if in.DoseQty != nil {
		d.DoseQty = cast.ToString(in.DoseQty)
	}
	if in.Frequency != nil {
		d.Frequency = cast.ToString(in.Frequency)
	}
	if in.Days != nil {
		d.Days = cast.ToString(in.Days)
	}
	if in.Route != "" {
		d.Route = in.Route
	}
	return d
}

// Quote prices an item without touching the bill.
func (t *Terminal) Quote(itemID int64, in RegimenInput) (catalog.Item, pricing.Quote, error) {
	item, err := t.Item(itemID)
	if err != nil {
		return catalog.Item{}, pricing.Quote{}, err
	}
	return item, pricing.Compute(item, RegimenFor(item, in)), nil
}

// ── Bill ──

// NewLine packages a quote with a snapshot of the item it priced.
func NewLine(item catalog.Item, q pricing.Quote) ledger.Line {
	line := ledger.Line{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    q.UnitPrice,
		Type:     item.Type,
		Category: item.CategoryOrDefault(),
		Strength: item.Strength,
		Qty:      q.TotalQty,
		Subtotal: q.Subtotal,
	}
	if q.Mode == pricing.ModeDosage {
		days, freq, dose := q.Days, q.Frequency, q.DosePerTime
		line.Duration = &days
		line.Frequency = &freq
		line.DosePerTime = &dose
		line.Route = q.Route
	}
	return line
}

// AddToBill prices the item and appends the resulting line.
func (t *Terminal) AddToBill(itemID int64, in RegimenInput) (ledger.Line, error) {
	t.mu.Lock()
	item, ok := t.catalog.Find(itemID)
	if !ok {
		t.mu.Unlock()
		return ledger.Line{}, ErrItemNotFound
	}
	line := NewLine(item, pricing.Compute(item, RegimenFor(item, in)))
	t.bill.Append(line)
	evt := t.billEventLocked()
	t.mu.Unlock()

	t.publish(enum.TopicBill, enum.EventBillChanged, evt)
	return line, nil
}

// RemoveLine removes the line at index; out of range is a no-op.
func (t *Terminal) RemoveLine(index int) bool {
	return t.mutateBill(func(l *ledger.Ledger) bool { return l.RemoveAt(index) })
}

// RemoveLineByName removes the first line called name; no match is a no-op.
func (t *Terminal) RemoveLineByName(name string) bool {
	return t.mutateBill(func(l *ledger.Ledger) bool { return l.RemoveByName(name) })
}

// ClearBill empties the bill without ending the session.
func (t *Terminal) ClearBill() {
	t.mutateBill(func(l *ledger.Ledger) bool {
		changed := l.Len() > 0
		l.Clear()
		return changed
	})
}

func (t *Terminal) mutateBill(fn func(*ledger.Ledger) bool) bool {
	t.mu.Lock()
	changed := fn(t.bill)
	evt := t.billEventLocked()
	t.mu.Unlock()

	if changed {
		t.publish(enum.TopicBill, enum.EventBillChanged, evt)
	}
	return changed
}

// Receipt acknowledges a committed bill. Nothing is persisted.
type Receipt struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Lines          []ledger.Line
	Total          decimal.Decimal
	FormattedTotal string
	CommittedAt    time.Time
}

// Commit finalises the bill: it is cleared and a new session begins.
// Committing an empty bill returns ErrEmptyBill.
func (t *Terminal) Commit() (Receipt, error) {
	t.mu.Lock()
	if t.bill.State() == ledger.StateEmpty {
		t.mu.Unlock()
		return Receipt{}, ErrEmptyBill
	}
	total := t.bill.Total()
	receipt := Receipt{
		ID:             uuid.New(),
		SessionID:      t.sessionID,
		Lines:          t.bill.Lines(),
		Total:          total,
		FormattedTotal: money.Format(total),
		CommittedAt:    t.now(),
	}
	t.bill.Clear()
	t.sessionID = uuid.New()
	evt := t.billEventLocked()
	t.mu.Unlock()

	t.log.Info().
		Str("session_id", receipt.SessionID.String()).
		Int("lines", len(receipt.Lines)).
		Str("total", money.Fixed(total)).
		Msg("bill committed")
	t.publish(enum.TopicBill, enum.EventBillCommitted, evt)
	return receipt, nil
}

// BillSnapshot is a read-only copy of the bill and its projections.
type BillSnapshot struct {
	SessionID       uuid.UUID
	State           ledger.State
	Lines           []ledger.Line
	Groups          []ledger.Group
	ActiveMedicines []ledger.IndexedLine
	Total           decimal.Decimal
}

func (t *Terminal) Bill() BillSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return BillSnapshot{
		SessionID:       t.sessionID,
		State:           t.bill.State(),
		Lines:           t.bill.Lines(),
		Groups:          t.bill.Groups(),
		ActiveMedicines: t.bill.ActiveMedicines(),
		Total:           t.bill.Total(),
	}
}

// ── Events ──

// CatalogEvent is the payload of catalog.* events.
type CatalogEvent struct {
	Items      int      `json:"items"`
	Categories []string `json:"categories"`
}

// BillEvent is the payload of bill.* events.
type BillEvent struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Lines     int    `json:"lines"`
	Total     string `json:"total"`
}

func (t *Terminal) catalogEventLocked() CatalogEvent {
	return CatalogEvent{Items: t.catalog.Len(), Categories: t.catalog.OutpatientCategories()}
}

func (t *Terminal) billEventLocked() BillEvent {
	return BillEvent{
		SessionID: t.sessionID.String(),
		State:     string(t.bill.State()),
		Lines:     t.bill.Len(),
		Total:     money.Fixed(t.bill.Total()),
	}
}

// publish is called without mu held; a failed publish never fails the
// operation that caused it.
func (t *Terminal) publish(topic, eventType string, payload any) {
	if t.pub == nil {
		return
	}
	if err := t.pub.Publish(topic, eventType, payload); err != nil {
		t.log.Warn().Err(err).Str("event", eventType).Msg("publish failed")
	}
}
