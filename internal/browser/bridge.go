package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/surface"
)

// Evaluator runs a JS function in the app tab and returns its JSON result.
// The function is awaited when it returns a promise.
type Evaluator interface {
	Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error)
}

type pageEvaluator struct {
	page    *rod.Page
	timeout time.Duration
}

func (e *pageEvaluator) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	res, err := e.page.Context(ctx).Timeout(e.timeout).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []byte("null"), nil
	}
	return res.Value.MarshalJSON()
}

// Host ids are numeric; they travel through Go as strings.
const numJS = `const num = (v) => (typeof v === "string" && /^\d+$/.test(v) ? Number(v) : v);`

const (
	jsHasService = `(name) => !!(window.services && window.services[name])`

	jsCurrentChallenge = `() => {
		const c = window.services.SBCChallengeService.getCurrentChallenge();
		if (!c) throw new Error("no challenge open");
		return {
			id: String(c.getDefinition().id),
			squad: c.getSquad().map((slot) => ({ position: String(slot.position) })),
		};
	}`

	jsPlace = `async (challengeId, position, itemId) => {
		` + numJS + `
		await window.services.SBCChallengeService.placePlayerInSlot(num(challengeId), position, num(itemId));
		return true;
	}`

	jsSubmit = `async (challengeId) => {
		` + numJS + `
		await window.services.SBCChallengeService.submitChallenge(num(challengeId));
		return true;
	}`

	jsClubPlayers = `async () => {
		const players = (await window.services.ClubService.requestClubPlayers()) || [];
		return players.map((p) => ({
			id: String(p.id),
			name: String((p._staticData && p._staticData.name) || p.name || ""),
			rating: p.rating == null ? "" : String(p.rating),
			preferredPosition: String(p.preferredPosition || ""),
			startingBid: p._auction && p._auction._startingBid != null ? Math.round(p._auction._startingBid) : null,
			inSquad: typeof p.isInSquad === "function" ? !!p.isInSquad() : false,
		}));
	}`

	jsHasPackStore = `() => {
		const s = window.services && window.services.StoreService;
		return !!(s && typeof s.getStore === "function" && s.getStore());
	}`

	jsUnopenedPacks = `() => {
		const st = window.services.StoreService.getStore();
		if (!st || typeof st.getUnopenedPacks !== "function") return null;
		return (st.getUnopenedPacks() || []).map((p) => ({ id: String(p.id) }));
	}`

	jsOpenPack = `async (packId) => {
		` + numJS + `
		await window.services.StoreService.openPack(num(packId));
		return true;
	}`

	jsHasDistributor = `() => {
		const s = window.services && window.services.StoreService;
		return !!(s && typeof s.sendAllToClubOrUnassigned === "function");
	}`

	jsDistribute = `async () => {
		await window.services.StoreService.sendAllToClubOrUnassigned();
		return true;
	}`

	jsLocalStorage = `(key) => window.localStorage.getItem(key)`
)

// Host service names.
const (
	ServiceChallenge = "SBCChallengeService"
	ServiceClub      = "ClubService"
	ServiceStore     = "StoreService"
)

// Bridge implements surface.Services over an Evaluator.
type Bridge struct {
	eval         Evaluator
	probeTimeout time.Duration
}

var _ surface.Services = (*Bridge)(nil)

// NewBridge wraps eval.
func NewBridge(eval Evaluator) *Bridge {
	return &Bridge{eval: eval, probeTimeout: 5 * time.Second}
}

// slowCall is the host round trip above which a call is logged as a warning.
const slowCall = 2 * time.Second

func (b *Bridge) call(ctx context.Context, op, js string, out interface{}, args ...interface{}) error {
	timer := logging.StartTimer(logging.CategoryBrowser, op)
	raw, err := b.eval.Eval(ctx, js, args...)
	timer.StopWithThreshold(slowCall)
	if err != nil {
		logging.BrowserDebug("%s: %v", op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", op, err)
	}
	return nil
}

// check evaluates a boolean presence probe. Any failure reads as absent.
func (b *Bridge) check(js string, args ...interface{}) bool {
	ctx, cancel := context.WithTimeout(context.Background(), b.probeTimeout)
	defer cancel()
	var ok bool
	if err := b.call(ctx, "probe", js, &ok, args...); err != nil {
		return false
	}
	return ok
}

func (b *Bridge) Challenge() (surface.ChallengeService, bool) {
	if !b.check(jsHasService, ServiceChallenge) {
		return nil, false
	}
	return challengeService{b}, true
}

func (b *Bridge) Club() (surface.ClubService, bool) {
	if !b.check(jsHasService, ServiceClub) {
		return nil, false
	}
	return clubService{b}, true
}

func (b *Bridge) Store() (surface.StoreService, bool) {
	if !b.check(jsHasService, ServiceStore) {
		return nil, false
	}
	return storeService{b}, true
}

// LocalStorage reads key from the app origin's localStorage.
func (b *Bridge) LocalStorage(ctx context.Context, key string) ([]byte, bool, error) {
	var v *string
	if err := b.call(ctx, "read localStorage "+key, jsLocalStorage, &v, key); err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return []byte(*v), true, nil
}

type challengeService struct{ b *Bridge }

func (c challengeService) CurrentChallenge(ctx context.Context) (surface.ChallengeInfo, error) {
	var info surface.ChallengeInfo
	err := c.b.call(ctx, "current challenge", jsCurrentChallenge, &info)
	return info, err
}

func (c challengeService) PlacePlayerInSlot(ctx context.Context, challengeID, position, itemID string) error {
	return c.b.call(ctx, "place player", jsPlace, nil, challengeID, position, itemID)
}

func (c challengeService) SubmitChallenge(ctx context.Context, challengeID string) error {
	return c.b.call(ctx, "submit challenge", jsSubmit, nil, challengeID)
}

type clubService struct{ b *Bridge }

func (c clubService) RequestClubPlayers(ctx context.Context) ([]surface.Item, error) {
	var items []surface.Item
	err := c.b.call(ctx, "request club players", jsClubPlayers, &items)
	return items, err
}

type storeService struct{ b *Bridge }

func (s storeService) PackStore(ctx context.Context) (surface.PackStore, bool, error) {
	var ok bool
	if err := s.b.call(ctx, "pack store", jsHasPackStore, &ok); err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return packStore{s.b}, true, nil
}

func (s storeService) OpenPack(ctx context.Context, packID string) error {
	return s.b.call(ctx, "open pack", jsOpenPack, nil, packID)
}

func (s storeService) Distributor() (surface.Distributor, bool) {
	if !s.b.check(jsHasDistributor) {
		return nil, false
	}
	return distributor{s.b}, true
}

type packStore struct{ b *Bridge }

func (p packStore) UnopenedPacks(ctx context.Context) ([]surface.Pack, bool, error) {
	var packs *[]surface.Pack
	if err := p.b.call(ctx, "unopened packs", jsUnopenedPacks, &packs); err != nil {
		return nil, false, err
	}
	if packs == nil {
		return nil, false, nil
	}
	return *packs, true, nil
}

type distributor struct{ b *Bridge }

func (d distributor) SendAllToClubOrUnassigned(ctx context.Context) error {
	return d.b.call(ctx, "send all to club", jsDistribute, nil)
}
