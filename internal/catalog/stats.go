package catalog

import (
	"strings"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/tree"
)

const (
	SourceProduct  = "product"
	SourceCategory = "category"
)

// NodeInfo is the payload of a product or category tree node.
type NodeInfo struct {
	ID          uint   `json:"id"`
	Source      string `json:"source"`
	ModelNumber string `json:"model_number"`
	Image       string `json:"image"`
}

// GroupCount is one row of the grouped asset count: assets sharing a
// lowercased model number, product name and canonical state.
type GroupCount struct {
	ModelNumber string
	ProductName string
	State       assetstate.State
	Count       int64
}

type Counts struct {
	Total       int64 `json:"total"`
	InStore     int64 `json:"in_store"`
	InUse       int64 `json:"in_use"`
	Testing     int64 `json:"testing"`
	Faulty      int64 `json:"faulty"`
	UnderRepair int64 `json:"under_repair"`
	Disposed    int64 `json:"disposed"`
	Other       int64 `json:"other"`
}

func (c *Counts) add(state assetstate.State, n int64) {
	c.Total += n
	switch state {
	case assetstate.StateNew, assetstate.StateUsed:
		c.InStore += n
	case assetstate.StateInUse:
		c.InUse += n
	case assetstate.StateTesting:
		c.Testing += n
	case assetstate.StateFaulty:
		c.Faulty += n
	case assetstate.StateUnderRepair:
		c.UnderRepair += n
	case assetstate.StateDisposed, assetstate.StateScrapped:
		c.Disposed += n
	default:
		c.Other += n
	}
}

func (c *Counts) merge(o *Counts) {
	c.Total += o.Total
	c.InStore += o.InStore
	c.InUse += o.InUse
	c.Testing += o.Testing
	c.Faulty += o.Faulty
	c.UnderRepair += o.UnderRepair
	c.Disposed += o.Disposed
	c.Other += o.Other
}

type StatRow struct {
	Name        string `json:"name"`
	ModelNumber string `json:"model_number"`
	Path        string `json:"path"`
	Depth       int    `json:"depth"`
	Source      string `json:"source"`
	NodeID      uint   `json:"node_id"`
	Counts
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type groupKey struct {
	model string
	name  string
}

// Aggregate joins flattened tree nodes with grouped asset counts.
//
// A node matches asset groups by model number first and falls back to the
// product name when no group carries its model number. Output has one row
// per normalized name, in first-occurrence order, and later nodes with the
// same name add their matches to that row. Each asset group is credited to
// the first row that matches it, so a model number shared by differently
// named nodes is counted once and never merges their rows.
func Aggregate(nodes []tree.Flat[NodeInfo], groups []GroupCount) []StatRow {
	byGroup := make(map[groupKey]*Counts)
	byModel := make(map[string][]groupKey)
	byName := make(map[string][]groupKey)

	for _, g := range groups {
		k := groupKey{model: normalize(g.ModelNumber), name: normalize(g.ProductName)}
		c, ok := byGroup[k]
		if !ok {
			c = &Counts{}
			byGroup[k] = c
			if k.model != "" {
				byModel[k.model] = append(byModel[k.model], k)
			}
			if k.name != "" {
				byName[k.name] = append(byName[k.name], k)
			}
		}
		c.add(g.State, g.Count)
	}

	var rows []*StatRow
	rowByName := make(map[string]*StatRow)
	claimed := make(map[groupKey]bool)

	for _, n := range nodes {
		name := normalize(n.Name)
		model := normalize(n.Value.ModelNumber)
		if name == "" {
			continue
		}

		row := rowByName[name]
		if row == nil {
			row = &StatRow{
				Name:        n.Name,
				ModelNumber: n.Value.ModelNumber,
				Path:        n.Path,
				Depth:       n.Depth,
				Source:      n.Value.Source,
				NodeID:      n.Value.ID,
			}
			rowByName[name] = row
			rows = append(rows, row)
		}

		var keys []groupKey
		if model != "" {
			keys = byModel[model]
		}
		if len(keys) == 0 {
			keys = byName[name]
		}
		for _, k := range keys {
			if claimed[k] {
				continue
			}
			claimed[k] = true
			row.Counts.merge(byGroup[k])
		}
	}

	out := make([]StatRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}
