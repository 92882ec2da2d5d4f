package models

import "github.com/shopspring/decimal"

// EntityType tags the kind of counterparty a schedule is held against
type EntityType string

const (
	EntityPharmacy EntityType = "pharmacy"
	EntityVendor   EntityType = "vendor"
	EntityDoctor   EntityType = "doctor"
)

// EntityTypes lists every known entity type in display order
var EntityTypes = []EntityType{EntityPharmacy, EntityVendor, EntityDoctor}

// CashFlowDirection says whether money flows into or out of the platform
type CashFlowDirection string

const (
	DirectionCollection CashFlowDirection = "collection"
	DirectionPayout     CashFlowDirection = "payout"
)

type entityTraits struct {
	direction CashFlowDirection
	verb      string
}

var traits = map[EntityType]entityTraits{
	EntityPharmacy: {direction: DirectionCollection, verb: "Collect"},
	EntityVendor:   {direction: DirectionCollection, verb: "Collect"},
	EntityDoctor:   {direction: DirectionPayout, verb: "Pay"},
}

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	_, ok := traits[t]
	return ok
}

// Direction returns the cash-flow direction for schedules held against t
func (t EntityType) Direction() CashFlowDirection {
	return traits[t].direction
}

// ActionVerb returns the operator-facing verb for the collect/pay action
func (t EntityType) ActionVerb() string {
	return traits[t].verb
}

// Entity is a read-only projection of a pharmacy, vendor or doctor.
// Label holds the city for pharmacies and vendors and the specialization for doctors.
type Entity struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Label         string          `json:"label"`
	Type          EntityType      `json:"type"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}
