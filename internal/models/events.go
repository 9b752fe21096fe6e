package models

// Field names an editable investment field.
type Field string

const (
	FieldSymbol        Field = "symbol"
	FieldMarket        Field = "market"
	FieldQuantity      Field = "quantity"
	FieldPurchasePrice Field = "purchase_price"
	FieldPurchaseDate  Field = "purchase_date"
	FieldReferenceRate Field = "reference_rate"
	FieldCurrentPrice  Field = "current_price"
)

// ParseField validates a user-supplied field name. Current price is not
// user-editable; it is written by the refresh path only.
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldSymbol, FieldMarket, FieldQuantity, FieldPurchasePrice, FieldPurchaseDate, FieldReferenceRate:
		return f, true
	}
	return "", false
}

// EventKind distinguishes portfolio events.
type EventKind int

const (
	EventInvestmentAdded EventKind = iota + 1
	EventInvestmentRemoved
	EventFieldEdited
)

func (k EventKind) String() string {
	switch k {
	case EventInvestmentAdded:
		return "investment_added"
	case EventInvestmentRemoved:
		return "investment_removed"
	case EventFieldEdited:
		return "field_edited"
	}
	return "unknown"
}

// Event is published by the portfolio service after a mutation commits.
// Indices are positions at publish time and may be stale by the time a
// subscriber acts; InvestmentID is the stable reference.
type Event struct {
	Kind            EventKind
	WalletIndex     int
	InvestmentIndex int
	InvestmentID    string
	Field           Field  // EventFieldEdited only
	Value           string // EventFieldEdited only
}
