package enum

// ── Catalog ──

// DefaultCategory is the bucket for items that arrive without a category.
const DefaultCategory = "General"

// DefaultItemType is applied by the catalog form when no type is chosen.
const DefaultItemType = "Medicine"

const (
	CategoryMedicine          = "Medicine"
	CategoryDischargeMedicine = "Discharge Medicine"
)

// InpatientCategories is the fixed, ordered list of inpatient charge groups.
// The catalog keeps a (possibly empty) bucket for each of them.
var InpatientCategories = []string{
	"Medicine",
	"Laboratory",
	"Blood",
	"Surgery, O.R. & Delivery",
	"Registration Fees",
	"Physical Therapy",
	"Limb and Brace",
	"Food",
	"Halo, O2, NO2, etc.",
	"Orthopedic, S.Roll, etc.",
	"IV.'s",
	"Discharge Medicine",
	"Procedures",
	"Seat & Ad. Fee",
}

// MedicineTypes lists the dosage forms / modalities offered by the catalog form.
var MedicineTypes = []string{
	"Medicine",
	"Service",
	"Injection",
	"Tablet",
	"Capsule",
	"Syrup",
	"Ointment",
	"Solution",
	"Nasal Drops",
	"Eye Drops",
	"Ear Drop",
	"Gel",
	"Inhaler",
	"Mouth Wash",
	"Vaginal Ointment",
	"Medical Supply",
	"IV",
	"Supply",
}

// ── Dosing ──

const (
	RouteTablet    = "Tablet"
	RouteCapsule   = "Capsule"
	RouteInjection = "Injection"
	RouteSyrup     = "Syrup"
)

// DoseRoutes are descriptive only; they never affect price.
var DoseRoutes = []string{RouteTablet, RouteCapsule, RouteInjection, RouteSyrup}

// DoseFrequency is one entry of the administrations-per-day picker.
type DoseFrequency struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

var DoseFrequencies = []DoseFrequency{
	{Value: 1, Label: "QD (1/day)"},
	{Value: 2, Label: "BID (2/day)"},
	{Value: 3, Label: "TID (3/day)"},
	{Value: 4, Label: "QID (4/day)"},
}

const (
	DefaultDoseQty       = "1.0"
	DefaultDoseFrequency = "3"
	DefaultDoseDays      = "7"
	DefaultServiceQty    = "1"
)

// ── Views ──

const (
	ViewHome       = "home"
	ViewOutpatient = "outpatient"
	ViewInpatient  = "inpatient"
	ViewPricing    = "pricing"
)

// ── Change events (websocket topics and types) ──

const (
	TopicCatalog  = "catalog"
	TopicBill     = "bill"
	TopicSettings = "settings"
)

const (
	EventCatalogLoaded   = "catalog.loaded"
	EventCatalogChanged  = "catalog.changed"
	EventCatalogImported = "catalog.imported"
	EventBillChanged     = "bill.changed"
	EventBillCommitted   = "bill.committed"
	EventSettingsChanged = "settings.changed"
)

// ── Settings ──

const (
	SettingsCategoryOutpatient = "outpatient"
	SettingsCategoryInpatient  = "inpatient"
	SettingsCategoryBoth       = "both"
)

const (
	SettingsBackendBolt     = "bolt"
	SettingsBackendPostgres = "postgres"
)
