package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NullGroupCode is stored in place of a missing group code because the group
// table key does not admit nulls.
const NullGroupCode = "__NULL__"

// BalanceFact is one observed inventory balance line keyed by its
// content-addressed identifier.
type BalanceFact struct {
	BalanceID      string              `json:"balance_id"`
	InventoryKind  NullText            `json:"inventory_kind"`
	BalanceDate    *time.Time          `json:"balance_date"`
	WarehouseID    *int64              `json:"warehouse_id"`
	WarehouseCode  NullText            `json:"warehouse_code"`
	ProductCode    NullText            `json:"product_code"`
	ProductBarcode NullText            `json:"product_barcode"`
	ProductID      NullText            `json:"product_id"`
	CardCode       NullText            `json:"card_code"`
	ExpiryDate     *time.Time          `json:"expiry_date"`
	SerialNumber   NullText            `json:"serial_number"`
	BatchNumber    NullText            `json:"batch_number"`
	Quantity       decimal.NullDecimal `json:"quantity"`
	MeasureCode    NullText            `json:"measure_code"`
	InputPrice     decimal.NullDecimal `json:"input_price"`
	FilialID       *int64              `json:"filial_id"`
	FilialCode     NullText            `json:"filial_code"`
}

// GroupMembership attaches a fact to a classification group. An invalid
// GroupCode marks a fact reported without any group.
type GroupMembership struct {
	BalanceID string   `json:"balance_id"`
	GroupCode NullText `json:"group_code"`
	TypeCode  NullText `json:"type_code"`
}

// ConditionMembership attaches a fact to a product condition code.
type ConditionMembership struct {
	BalanceID string `json:"balance_id"`
	Condition string `json:"condition"`
}

// ScopeState is the persisted checkpoint of one sync scope.
type ScopeState struct {
	ScopeKey        string     `json:"scope_key"`
	LastBalanceDate *time.Time `json:"last_balance_date,omitempty"`
	LastRunUTC      *time.Time `json:"last_run_utc,omitempty"`
	LastRowCount    int        `json:"last_row_count"`
}

// Batch groups the rows staged for one scope.
type Batch struct {
	Facts      []BalanceFact
	Groups     []GroupMembership
	Conditions []ConditionMembership
}

// Empty reports whether the batch carries no rows at all.
func (b Batch) Empty() bool {
	return len(b.Facts) == 0 && len(b.Groups) == 0 && len(b.Conditions) == 0
}
