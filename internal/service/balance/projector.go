package balance

import (
	"time"

	"github.com/epco/stocksync/internal/domain/models"
	"github.com/epco/stocksync/internal/identity"
	"github.com/epco/stocksync/internal/normalize"
)

type groupKey struct {
	balanceID string
	code      models.NullText
}

type conditionKey struct {
	balanceID string
	condition string
}

// Filter remembers which facts and memberships a run has already produced.
// One Filter lives for exactly one pipeline run.
type Filter struct {
	facts      map[string]struct{}
	groups     map[groupKey]struct{}
	conditions map[conditionKey]struct{}
}

// NewFilter returns an empty per-run filter.
func NewFilter() *Filter {
	return &Filter{
		facts:      make(map[string]struct{}),
		groups:     make(map[groupKey]struct{}),
		conditions: make(map[conditionKey]struct{}),
	}
}

func (f *Filter) firstFact(id string) bool {
	if _, ok := f.facts[id]; ok {
		return false
	}
	f.facts[id] = struct{}{}
	return true
}

func (f *Filter) firstGroup(k groupKey) bool {
	if _, ok := f.groups[k]; ok {
		return false
	}
	f.groups[k] = struct{}{}
	return true
}

func (f *Filter) firstCondition(k conditionKey) bool {
	if _, ok := f.conditions[k]; ok {
		return false
	}
	f.conditions[k] = struct{}{}
	return true
}

// Added counts rows new to the run.
type Added struct {
	Facts      int
	Groups     int
	Conditions int
}

func (a *Added) add(b Added) {
	a.Facts += b.Facts
	a.Groups += b.Groups
	a.Conditions += b.Conditions
}

// Projection turns the raw items of one scope into fact, group and condition
// rows.
type Projection struct {
	scope      models.Scope
	filter     *Filter
	facts      []models.BalanceFact
	factIndex  map[string]int
	groups     []models.GroupMembership
	conditions []models.ConditionMembership
	maxDate    *time.Time
	added      Added
}

// NewProjection starts projecting rows for scope, deduplicating against filter.
func NewProjection(scope models.Scope, filter *Filter) *Projection {
	return &Projection{scope: scope, filter: filter, factIndex: make(map[string]int)}
}

// Add projects one raw item. A fact counts as added only the first time its
// identifier is seen in the run; a repeated identifier replaces the attributes
// staged earlier in this scope. Items without groups get a single null group.
func (p *Projection) Add(item models.BalanceItem) Added {
	var added Added

	fact := p.fact(item)
	if pos, ok := p.factIndex[fact.BalanceID]; ok {
		p.facts[pos] = fact
	} else {
		p.factIndex[fact.BalanceID] = len(p.facts)
		p.facts = append(p.facts, fact)
	}
	if p.filter.firstFact(fact.BalanceID) {
		added.Facts++
		if fact.BalanceDate != nil && (p.maxDate == nil || fact.BalanceDate.After(*p.maxDate)) {
			d := *fact.BalanceDate
			p.maxDate = &d
		}
	}

	groups := item.Groups
	if len(groups) == 0 {
		groups = []models.ItemGroup{{}}
	}
	for _, g := range groups {
		if !p.filter.firstGroup(groupKey{balanceID: fact.BalanceID, code: g.GroupCode}) {
			continue
		}
		p.groups = append(p.groups, models.GroupMembership{
			BalanceID: fact.BalanceID,
			GroupCode: g.GroupCode,
			TypeCode:  g.TypeCode,
		})
		added.Groups++
	}

	if p.filter.firstCondition(conditionKey{balanceID: fact.BalanceID, condition: p.scope.Condition}) {
		p.conditions = append(p.conditions, models.ConditionMembership{
			BalanceID: fact.BalanceID,
			Condition: p.scope.Condition,
		})
		added.Conditions++
	}

	p.added.add(added)
	return added
}

func (p *Projection) fact(item models.BalanceItem) models.BalanceFact {
	balanceDate := normalize.DatePtr(item.Date)
	return models.BalanceFact{
		BalanceID: identity.BalanceID(
			p.scope.WarehouseID.Or(""),
			item.ProductID.Or(""),
			item.BatchNumber.Or(""),
			balanceDate,
		),
		InventoryKind:  item.InventoryKind,
		BalanceDate:    balanceDate,
		WarehouseID:    normalize.IntPtr(p.scope.WarehouseID),
		WarehouseCode:  p.scope.WarehouseCode,
		ProductCode:    item.ProductCode,
		ProductBarcode: item.ProductBarcode,
		ProductID:      item.ProductID,
		CardCode:       item.CardCode,
		ExpiryDate:     normalize.DatePtr(item.ExpiryDate),
		SerialNumber:   item.SerialNumber,
		BatchNumber:    item.BatchNumber,
		Quantity:       normalize.Decimal(item.Quantity),
		MeasureCode:    item.MeasureCode,
		InputPrice:     normalize.Decimal(item.InputPrice),
		FilialID:       normalize.IntPtr(p.scope.FilialID),
		FilialCode:     p.scope.FilialCode,
	}
}

// Batch returns the rows accumulated so far.
func (p *Projection) Batch() models.Batch {
	return models.Batch{Facts: p.facts, Groups: p.groups, Conditions: p.conditions}
}

// MaxBalanceDate is the latest balance date among facts new to the run, the
// candidate checkpoint of the scope.
func (p *Projection) MaxBalanceDate() *time.Time {
	return p.maxDate
}

// Added returns the running totals of the scope.
func (p *Projection) Added() Added {
	return p.added
}
