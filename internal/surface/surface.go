// Package surface describes the host application's capability surfaces as Go
// interfaces. A surface is optional: each accessor on Services reports whether
// the host has initialized it yet, and callers treat absence as a normal state.
package surface

import "context"

// Kind names one of the three capability surfaces the core depends on.
type Kind string

const (
	Challenge Kind = "challenge"
	Inventory Kind = "inventory"
	Store     Kind = "store"
)

// All lists the surfaces in status-line order.
var All = []Kind{Challenge, Inventory, Store}

// Label is the short name shown in status lines.
func (k Kind) Label() string {
	switch k {
	case Challenge:
		return "SBC"
	case Inventory:
		return "Club"
	case Store:
		return "Store"
	default:
		return string(k)
	}
}

// Item is one inventory unit owned by the operator.
type Item struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	Rating            string `json:"rating,omitempty"`
	PreferredPosition string `json:"preferredPosition"`
	// StartingBid is the market starting bid; nil when the host exposes none.
	StartingBid *int64 `json:"startingBid,omitempty"`
	InSquad     bool   `json:"inSquad"`
}

// Cost returns the cost proxy used for cheapest-first ordering.
// Items without a starting bid cost 0.
func (i Item) Cost() int64 {
	if i.StartingBid == nil {
		return 0
	}
	return *i.StartingBid
}

// Slot is one position of a live challenge squad.
type Slot struct {
	Position string `json:"position"`
}

// ChallengeInfo is the live challenge currently open in the host.
type ChallengeInfo struct {
	ID    string `json:"id"`
	Squad []Slot `json:"squad"`
}

// Positions returns the squad's role codes in slot order.
func (c ChallengeInfo) Positions() []string {
	out := make([]string, 0, len(c.Squad))
	for _, s := range c.Squad {
		out = append(out, s.Position)
	}
	return out
}

// Pack is one unopened container in the store.
type Pack struct {
	ID string `json:"id"`
}

// Services is the process-wide handle on which surfaces appear once the host
// initializes them.
type Services interface {
	Challenge() (ChallengeService, bool)
	Club() (ClubService, bool)
	Store() (StoreService, bool)
}

// ChallengeService manages squad-building challenges.
type ChallengeService interface {
	CurrentChallenge(ctx context.Context) (ChallengeInfo, error)
	PlacePlayerInSlot(ctx context.Context, challengeID, position, itemID string) error
	SubmitChallenge(ctx context.Context, challengeID string) error
}

// ClubService exposes the operator's inventory.
type ClubService interface {
	RequestClubPlayers(ctx context.Context) ([]Item, error)
}

// StoreService manages packs.
type StoreService interface {
	// PackStore returns the store accessor; ok is false when the host does not
	// expose one.
	PackStore(ctx context.Context) (store PackStore, ok bool, err error)
	OpenPack(ctx context.Context, packID string) error
	// Distributor returns the optional "send all to club" capability.
	Distributor() (Distributor, bool)
}

// PackStore lists unopened packs. ok is false when the collection accessor is
// missing from the host's store object.
type PackStore interface {
	UnopenedPacks(ctx context.Context) (packs []Pack, ok bool, err error)
}

// Distributor moves freshly opened contents to the club or unassigned pile.
type Distributor interface {
	SendAllToClubOrUnassigned(ctx context.Context) error
}

// Present reports whether the surface of kind k is currently exposed.
func Present(s Services, k Kind) bool {
	if s == nil {
		return false
	}
	switch k {
	case Challenge:
		_, ok := s.Challenge()
		return ok
	case Inventory:
		_, ok := s.Club()
		return ok
	case Store:
		_, ok := s.Store()
		return ok
	}
	return false
}
