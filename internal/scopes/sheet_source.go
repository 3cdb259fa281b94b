package scopes

import (
	"context"
	"fmt"
	"strings"

	"github.com/epco/stocksync/internal/domain/models"
)

// RangeReader reads a block of cells from a spreadsheet.
type RangeReader interface {
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
}

// SheetSource reads scopes from a spreadsheet. The location range holds
// filial id, filial code, warehouse id and warehouse code columns; the
// condition range holds one code per row. Both start with a header row.
type SheetSource struct {
	reader          RangeReader
	locationsRange  string
	conditionsRange string
}

// NewSheetSource binds a source to two ranges of a spreadsheet.
func NewSheetSource(reader RangeReader, locationsRange, conditionsRange string) *SheetSource {
	return &SheetSource{reader: reader, locationsRange: locationsRange, conditionsRange: conditionsRange}
}

// Scopes reads both ranges and expands them into scopes.
func (s *SheetSource) Scopes(ctx context.Context) ([]models.Scope, error) {
	locationRows, err := s.reader.ReadRange(ctx, s.locationsRange)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	conditionRows, err := s.reader.ReadRange(ctx, s.conditionsRange)
	if err != nil {
		return nil, fmt.Errorf("load conditions: %w", err)
	}

	var locations []models.Location
	for _, row := range skipHeader(locationRows) {
		loc := models.Location{
			FilialID:      cellText(row, 0),
			FilialCode:    cellText(row, 1),
			WarehouseID:   cellText(row, 2),
			WarehouseCode: cellText(row, 3),
		}
		if !loc.FilialID.Valid && !loc.WarehouseID.Valid {
			continue
		}
		locations = append(locations, loc)
	}

	var codes []string
	for _, row := range skipHeader(conditionRows) {
		codes = append(codes, cellText(row, 0).Or(""))
	}

	return models.Expand(locations, uniqueCodes(codes)), nil
}

func skipHeader(rows [][]interface{}) [][]interface{} {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

func cellText(row []interface{}, idx int) models.NullText {
	if idx >= len(row) || row[idx] == nil {
		return models.NullText{}
	}
	v := strings.TrimSpace(fmt.Sprint(row[idx]))
	if v == "" {
		return models.NullText{}
	}
	return models.Text(v)
}
