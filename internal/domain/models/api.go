package models

// BalanceItem mirrors one element of the balance$export "balance" array.
type BalanceItem struct {
	InventoryKind  NullText    `json:"inventory_kind"`
	Date           NullText    `json:"date"`
	ProductCode    NullText    `json:"product_code"`
	ProductBarcode NullText    `json:"product_barcode"`
	ProductID      NullText    `json:"product_id"`
	CardCode       NullText    `json:"card_code"`
	ExpiryDate     NullText    `json:"expiry_date"`
	SerialNumber   NullText    `json:"serial_number"`
	BatchNumber    NullText    `json:"batch_number"`
	Quantity       NullText    `json:"quantity"`
	MeasureCode    NullText    `json:"measure_code"`
	InputPrice     NullText    `json:"input_price"`
	Groups         []ItemGroup `json:"groups"`
}

// ItemGroup is a group reference attached to a balance item.
type ItemGroup struct {
	GroupCode NullText `json:"group_code"`
	TypeCode  NullText `json:"type_code"`
}

// BalanceResponse is the balance$export response body.
type BalanceResponse struct {
	Balance []BalanceItem `json:"balance"`
}
