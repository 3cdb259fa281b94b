// Package scopes loads the filial/warehouse pairs and product condition codes
// that make up the scopes of a sync run.
package scopes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/epco/stocksync/internal/domain/models"
)

// FileSource reads scopes from the two JSON configuration files.
type FileSource struct {
	warehousesPath string
	conditionsPath string
}

// NewFileSource returns a source over filial_warehouse.json style and
// product_condition.json style files.
func NewFileSource(warehousesPath, conditionsPath string) *FileSource {
	return &FileSource{warehousesPath: warehousesPath, conditionsPath: conditionsPath}
}

type conditionEntry struct {
	ProductConditions []string `json:"product_conditions"`
}

// Scopes reads both files and expands them into scopes. The files are
// re-read on every call so edits take effect on the next run.
func (s *FileSource) Scopes(_ context.Context) ([]models.Scope, error) {
	var locations []models.Location
	if err := readJSON(s.warehousesPath, &locations); err != nil {
		return nil, err
	}

	var entries []conditionEntry
	if err := readJSON(s.conditionsPath, &entries); err != nil {
		return nil, err
	}

	var codes []string
	for _, e := range entries {
		codes = append(codes, e.ProductConditions...)
	}
	return models.Expand(locations, uniqueCodes(codes)), nil
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// uniqueCodes drops empty and repeated codes, keeping first occurrence order.
func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
