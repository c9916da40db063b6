// Package surfacetest provides in-memory host surfaces for tests.
package surfacetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Call records one command issued to a fake surface.
type Call struct {
	Method string
	Args   []string
}

// Services is a mutable fake of surface.Services. Nil fields are absent surfaces.
type Services struct {
	mu        sync.Mutex
	challenge *Challenge
	club      *Club
	store     *Store
}

// New returns a Services with the given surfaces; pass nil for absent ones.
func New(ch *Challenge, club *Club, st *Store) *Services {
	return &Services{challenge: ch, club: club, store: st}
}

func (s *Services) Challenge() (surface.ChallengeService, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challenge == nil {
		return nil, false
	}
	return s.challenge, true
}

func (s *Services) Club() (surface.ClubService, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.club == nil {
		return nil, false
	}
	return s.club, true
}

func (s *Services) Store() (surface.StoreService, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, false
	}
	return s.store, true
}

// SetChallenge installs or removes (nil) the challenge surface.
func (s *Services) SetChallenge(c *Challenge) {
	s.mu.Lock()
	s.challenge = c
	s.mu.Unlock()
}

// SetClub installs or removes (nil) the club surface.
func (s *Services) SetClub(c *Club) {
	s.mu.Lock()
	s.club = c
	s.mu.Unlock()
}

// SetStore installs or removes (nil) the store surface.
func (s *Services) SetStore(st *Store) {
	s.mu.Lock()
	s.store = st
	s.mu.Unlock()
}

// Challenge fakes surface.ChallengeService.
type Challenge struct {
	mu      sync.Mutex
	Current surface.ChallengeInfo
	// CurrentErr is returned by CurrentChallenge when set.
	CurrentErr error
	PlaceErr   error
	SubmitErr  error
	// OnPlace runs after every successful placement, before it returns.
	OnPlace func(position, itemID string)
	// OnSubmit runs after every successful submit.
	OnSubmit func(challengeID string)
	calls    []Call
}

func (c *Challenge) CurrentChallenge(ctx context.Context) (surface.ChallengeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CurrentErr != nil {
		return surface.ChallengeInfo{}, c.CurrentErr
	}
	return c.Current, nil
}

func (c *Challenge) PlacePlayerInSlot(ctx context.Context, challengeID, position, itemID string) error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: "place", Args: []string{challengeID, position, itemID}})
	err := c.PlaceErr
	hook := c.OnPlace
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(position, itemID)
	}
	return nil
}

func (c *Challenge) SubmitChallenge(ctx context.Context, challengeID string) error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: "submit", Args: []string{challengeID}})
	err := c.SubmitErr
	hook := c.OnSubmit
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(challengeID)
	}
	return nil
}

// Calls returns a copy of the recorded commands.
func (c *Challenge) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Placements returns the item ids placed, in order.
func (c *Challenge) Placements() []string {
	var ids []string
	for _, call := range c.Calls() {
		if call.Method == "place" {
			ids = append(ids, call.Args[2])
		}
	}
	return ids
}

// Submits counts submit commands.
func (c *Challenge) Submits() int {
	n := 0
	for _, call := range c.Calls() {
		if call.Method == "submit" {
			n++
		}
	}
	return n
}

// Club fakes surface.ClubService. Placed items report InSquad on later requests.
type Club struct {
	mu       sync.Mutex
	Items    []surface.Item
	Err      error
	inSquad  map[string]bool
	requests int
}

// NewClub returns a club holding items.
func NewClub(items ...surface.Item) *Club {
	return &Club{Items: items, inSquad: make(map[string]bool)}
}

func (c *Club) RequestClubPlayers(ctx context.Context) ([]surface.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]surface.Item, 0, len(c.Items))
	for _, it := range c.Items {
		if c.inSquad[it.ID] {
			it.InSquad = true
		}
		out = append(out, it)
	}
	return out, nil
}

// Consume marks ids as used in a squad, as the host does after a submit.
func (c *Club) Consume(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inSquad == nil {
		c.inSquad = make(map[string]bool)
	}
	for _, id := range ids {
		c.inSquad[id] = true
	}
}

// Requests counts inventory requests.
func (c *Club) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// Store fakes surface.StoreService.
type Store struct {
	mu sync.Mutex
	// Packs is nil to model a host store without an unopened-pack accessor.
	Packs []surface.Pack
	// NoAccessor models a host without getStore().
	NoAccessor    bool
	NoDistributor bool
	OpenErr       map[string]error
	calls         []Call
}

// NewStore returns a store with an accessor and distributor and the given queue.
func NewStore(ids ...string) *Store {
	packs := make([]surface.Pack, 0, len(ids))
	for _, id := range ids {
		packs = append(packs, surface.Pack{ID: id})
	}
	return &Store{Packs: packs}
}

func (s *Store) PackStore(ctx context.Context) (surface.PackStore, bool, error) {
	if s.NoAccessor {
		return nil, false, nil
	}
	return packStore{s}, true, nil
}

type packStore struct{ s *Store }

func (p packStore) UnopenedPacks(ctx context.Context) ([]surface.Pack, bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Packs == nil {
		return nil, false, nil
	}
	return append([]surface.Pack(nil), p.s.Packs...), true, nil
}

func (s *Store) OpenPack(ctx context.Context, packID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "open", Args: []string{packID}})
	if err := s.OpenErr[packID]; err != nil {
		return fmt.Errorf("open %s: %w", packID, err)
	}
	return nil
}

func (s *Store) Distributor() (surface.Distributor, bool) {
	if s.NoDistributor {
		return nil, false
	}
	return distributor{s}, true
}

type distributor struct{ s *Store }

func (d distributor) SendAllToClubOrUnassigned(ctx context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.calls = append(d.s.calls, Call{Method: "distribute"})
	return nil
}

// Calls returns a copy of the recorded commands.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Bid is a helper for building items with a starting bid.
func Bid(v int64) *int64 { return &v }
