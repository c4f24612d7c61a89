package model

import (
	"math"
	"strings"
)

// Catalog is a read-only view over a set of work orders.
type Catalog struct {
	orders []WorkOrder
	byID   map[string]int
}

// CatalogSummary holds aggregate figures for a catalog.
type CatalogSummary struct {
	Count        int     `json:"count"`
	SpecialCount int     `json:"special_count"`
	PricedCount  int     `json:"priced_count"`
	TotalAmount  float64 `json:"total_amount"`
	AvgAmount    float64 `json:"avg_amount"`
	MinAmount    float64 `json:"min_amount"`
	MaxAmount    float64 `json:"max_amount"`
}

// NewCatalog indexes orders by identifier. A repeated identifier resolves to
// the last occurrence.
func NewCatalog(orders []WorkOrder) *Catalog {
	c := &Catalog{
		orders: orders,
		byID:   make(map[string]int, len(orders)),
	}
	for i, wo := range orders {
		c.byID[wo.ID] = i
	}
	return c
}

// Len returns the number of work orders.
func (c *Catalog) Len() int { return len(c.orders) }

// Orders returns the underlying work orders.
func (c *Catalog) Orders() []WorkOrder { return c.orders }

// ByID looks up a work order by identifier.
func (c *Catalog) ByID(id string) (*WorkOrder, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	wo := c.orders[i]
	return &wo, true
}

// ByLocation returns orders whose location contains term, case-insensitively.
func (c *Catalog) ByLocation(term string) []WorkOrder {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []WorkOrder{}
	}
	return c.filter(func(wo WorkOrder) bool {
		return strings.Contains(strings.ToLower(wo.Location), term)
	})
}

// ByAmountRange returns priced orders within tolerancePct percent of target.
func (c *Catalog) ByAmountRange(target, tolerancePct float64) []WorkOrder {
	if tolerancePct < 0 {
		tolerancePct = 0
	}
	delta := math.Abs(target) * tolerancePct / 100
	lo, hi := target-delta, target+delta
	return c.filter(func(wo WorkOrder) bool {
		a := wo.Amount()
		return a > 0 && a >= lo && a <= hi
	})
}

// Search returns orders whose identifier, location or description contains
// term, case-insensitively.
func (c *Catalog) Search(term string) []WorkOrder {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []WorkOrder{}
	}
	return c.filter(func(wo WorkOrder) bool {
		return strings.Contains(strings.ToLower(wo.ID), term) ||
			strings.Contains(strings.ToLower(wo.Location), term) ||
			strings.Contains(strings.ToLower(wo.Description), term)
	})
}

// Summary computes aggregate figures. Min, max and average cover only orders
// with a positive amount.
func (c *Catalog) Summary() CatalogSummary {
	s := CatalogSummary{Count: len(c.orders)}
	for _, wo := range c.orders {
		if wo.IsSpecialCategory() {
			s.SpecialCount++
		}
		a := wo.Amount()
		if a <= 0 {
			continue
		}
		if s.PricedCount == 0 || a < s.MinAmount {
			s.MinAmount = a
		}
		if a > s.MaxAmount {
			s.MaxAmount = a
		}
		s.PricedCount++
		s.TotalAmount += a
	}
	if s.PricedCount > 0 {
		s.AvgAmount = s.TotalAmount / float64(s.PricedCount)
	}
	return s
}

func (c *Catalog) filter(keep func(WorkOrder) bool) []WorkOrder {
	out := []WorkOrder{}
	for _, wo := range c.orders {
		if keep(wo) {
			out = append(out, wo)
		}
	}
	return out
}
