package models

import "fmt"

// Location is one filial/warehouse pair from the scope configuration.
type Location struct {
	FilialID      NullText `json:"filial_id"`
	FilialCode    NullText `json:"filial_code"`
	WarehouseID   NullText `json:"warehouse_id"`
	WarehouseCode NullText `json:"warehouse_code"`
}

// Scope is a (filial, warehouse, condition) triple checkpointed on its own.
type Scope struct {
	Location
	Condition string
}

// Key returns the checkpoint key, e.g. "filial=1|warehouse=65478|cond=T".
func (s Scope) Key() string {
	if s.Condition == "" {
		return fmt.Sprintf("filial=%s|warehouse=%s", s.FilialID.Or(""), s.WarehouseID.Or(""))
	}
	return fmt.Sprintf("filial=%s|warehouse=%s|cond=%s", s.FilialID.Or(""), s.WarehouseID.Or(""), s.Condition)
}

// Expand builds the cartesian product of locations and conditions, in
// configuration order.
func Expand(locations []Location, conditions []string) []Scope {
	scopes := make([]Scope, 0, len(locations)*len(conditions))
	for _, loc := range locations {
		for _, cond := range conditions {
			scopes = append(scopes, Scope{Location: loc, Condition: cond})
		}
	}
	return scopes
}
