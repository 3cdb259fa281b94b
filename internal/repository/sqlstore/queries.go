package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/epco/stocksync/internal/domain/models"
)

// BalanceView is a fact row together with its memberships.
type BalanceView struct {
	Fact       models.BalanceFact
	Groups     []models.GroupMembership
	Conditions []string
}

// Stats counts the rows of each persistent table.
type Stats struct {
	Facts      int `db:"fact_count" json:"facts"`
	Groups     int `db:"group_count" json:"groups"`
	Conditions int `db:"condition_count" json:"conditions"`
	Scopes     int `db:"scope_count" json:"scopes"`
}

// Balance loads one fact with its groups and conditions, nil when unknown.
// Stored null group placeholders are reported as null group codes.
func (s *Store) Balance(ctx context.Context, balanceID string) (*BalanceView, error) {
	var fact factRow
	err := s.db.GetContext(ctx, &fact, `SELECT `+strings.Join(factMerge.columns, ", ")+` FROM fact_balance WHERE balance_id = ?`, balanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read balance %s: %w", balanceID, err)
	}

	var groups []groupRow
	if err := s.db.SelectContext(ctx, &groups, `SELECT balance_id, group_code, type_code
		FROM balance_group WHERE balance_id = ? ORDER BY group_code`, balanceID); err != nil {
		return nil, fmt.Errorf("read groups %s: %w", balanceID, err)
	}

	view := &BalanceView{Fact: fact.model()}
	for _, g := range groups {
		code := models.NullText{NullString: g.GroupCode}
		if code.Valid && code.String == models.NullGroupCode {
			code = models.NullText{}
		}
		view.Groups = append(view.Groups, models.GroupMembership{
			BalanceID: g.BalanceID,
			GroupCode: code,
			TypeCode:  models.NullText{NullString: g.TypeCode},
		})
	}

	if err := s.db.SelectContext(ctx, &view.Conditions, `SELECT product_condition
		FROM balance_condition WHERE balance_id = ? ORDER BY product_condition`, balanceID); err != nil {
		return nil, fmt.Errorf("read conditions %s: %w", balanceID, err)
	}
	return view, nil
}

// Stats returns table row counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `SELECT
		(SELECT COUNT(*) FROM fact_balance)       AS fact_count,
		(SELECT COUNT(*) FROM balance_group)      AS group_count,
		(SELECT COUNT(*) FROM balance_condition)  AS condition_count,
		(SELECT COUNT(*) FROM load_state_balance) AS scope_count`)
	if err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	return st, nil
}
