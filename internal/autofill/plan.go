package autofill

import (
	"sort"

	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Placement is the planned assignment for one template slot. Matched is false
// when no candidate fits the slot's role.
type Placement struct {
	Slot     int
	Position string
	Item     surface.Item
	Matched  bool
}

// Candidates filters items down to the usable pool and orders it cheapest
// first. Items already in a squad and locked items are dropped. Items without
// a starting bid cost 0 and so sort ahead of priced ones; ties keep the order
// the inventory reported.
func Candidates(items []surface.Item, locked map[string]struct{}) []surface.Item {
	pool := make([]surface.Item, 0, len(items))
	for _, it := range items {
		if it.InSquad {
			continue
		}
		if _, ok := locked[it.ID]; ok {
			continue
		}
		pool = append(pool, it)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Cost() < pool[j].Cost() })
	return pool
}

// Plan walks positions in order and gives each slot the first remaining pool
// item whose preferred position matches exactly. A matched item leaves the
// pool. Plan does not reorder pool; pass it through Candidates first.
func Plan(pool []surface.Item, positions []string) []Placement {
	remaining := append([]surface.Item(nil), pool...)
	out := make([]Placement, 0, len(positions))
	for slot, pos := range positions {
		p := Placement{Slot: slot, Position: pos}
		for i, it := range remaining {
			if it.PreferredPosition != pos {
				continue
			}
			p.Item = it
			p.Matched = true
			remaining = append(remaining[:i], remaining[i+1:]...)
			break
		}
		out = append(out, p)
	}
	return out
}

// Matched counts placements that found an item.
func Matched(plan []Placement) int {
	n := 0
	for _, p := range plan {
		if p.Matched {
			n++
		}
	}
	return n
}
