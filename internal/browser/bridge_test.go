package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Dami4lola/Ea-script/internal/surface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evalCall struct {
	js   string
	args []interface{}
}

// scriptedEvaluator answers each script by the first rule whose marker the
// script contains.
type scriptedEvaluator struct {
	mu    sync.Mutex
	rules []rule
	calls []evalCall
}

type rule struct {
	marker string
	result string
	err    error
}

func (s *scriptedEvaluator) on(marker, result string) *scriptedEvaluator {
	s.rules = append(s.rules, rule{marker: marker, result: result})
	return s
}

func (s *scriptedEvaluator) fail(marker string, err error) *scriptedEvaluator {
	s.rules = append(s.rules, rule{marker: marker, err: err})
	return s
}

func (s *scriptedEvaluator) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, evalCall{js: js, args: args})
	for _, r := range s.rules {
		if strings.Contains(js, r.marker) {
			if r.err != nil {
				return nil, r.err
			}
			return []byte(r.result), nil
		}
	}
	return []byte("null"), nil
}

func (s *scriptedEvaluator) last() evalCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

// presence answers the service probe per name.
type presence map[string]bool

func (p presence) Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error) {
	if js == jsHasService && len(args) == 1 {
		if p[args[0].(string)] {
			return []byte("true"), nil
		}
	}
	return []byte("false"), nil
}

func TestBridgePresence(t *testing.T) {
	b := NewBridge(presence{ServiceClub: true})

	_, ok := b.Challenge()
	assert.False(t, ok)
	_, ok = b.Club()
	assert.True(t, ok)
	_, ok = b.Store()
	assert.False(t, ok)
	assert.True(t, surface.Present(b, surface.Inventory))
}

func TestBridgeProbeErrorReadsAbsent(t *testing.T) {
	ev := (&scriptedEvaluator{}).fail("window.services", errors.New("target closed"))
	b := NewBridge(ev)
	_, ok := b.Challenge()
	assert.False(t, ok)
}

func TestBridgeChallenge(t *testing.T) {
	ev := (&scriptedEvaluator{}).
		on("getCurrentChallenge", `{"id":"1234","squad":[{"position":"GK"},{"position":"CB"}]}`).
		on("placePlayerInSlot", `true`).
		on("submitChallenge", `true`)
	ch := challengeService{NewBridge(ev)}
	ctx := context.Background()

	info, err := ch.CurrentChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1234", info.ID)
	assert.Equal(t, []string{"GK", "CB"}, info.Positions())

	require.NoError(t, ch.PlacePlayerInSlot(ctx, "1234", "GK", "99"))
	assert.Equal(t, []interface{}{"1234", "GK", "99"}, ev.last().args)

	require.NoError(t, ch.SubmitChallenge(ctx, "1234"))
	assert.Equal(t, []interface{}{"1234"}, ev.last().args)
}

func TestBridgeChallengeError(t *testing.T) {
	ev := (&scriptedEvaluator{}).fail("getCurrentChallenge", errors.New("no challenge open"))
	_, err := challengeService{NewBridge(ev)}.CurrentChallenge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current challenge")
}

func TestBridgeClubPlayers(t *testing.T) {
	ev := (&scriptedEvaluator{}).on("requestClubPlayers", `[
		{"id":"1","name":"Alisson","rating":"89","preferredPosition":"GK","startingBid":1500,"inSquad":false},
		{"id":"2","preferredPosition":"CB","startingBid":null,"inSquad":true}
	]`)
	items, err := clubService{NewBridge(ev)}.RequestClubPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(1500), items[0].Cost())
	assert.Equal(t, "Alisson", items[0].Name)
	assert.Nil(t, items[1].StartingBid)
	assert.Equal(t, int64(0), items[1].Cost())
	assert.True(t, items[1].InSquad)
}

func TestBridgeStore(t *testing.T) {
	ctx := context.Background()

	t.Run("full store", func(t *testing.T) {
		ev := (&scriptedEvaluator{}).
			on("getUnopenedPacks !==", `[{"id":"7"},{"id":"3"}]`).
			on("s.getStore()", `true`).
			on("typeof s.sendAllToClubOrUnassigned", `true`).
			on("openPack", `true`).
			on("sendAllToClubOrUnassigned()", `true`)
		st := storeService{NewBridge(ev)}

		ps, ok, err := st.PackStore(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		packs, ok, err := ps.UnopenedPacks(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []surface.Pack{{ID: "7"}, {ID: "3"}}, packs)

		require.NoError(t, st.OpenPack(ctx, "7"))
		assert.Equal(t, []interface{}{"7"}, ev.last().args)

		d, ok := st.Distributor()
		require.True(t, ok)
		require.NoError(t, d.SendAllToClubOrUnassigned(ctx))
	})

	t.Run("no accessor", func(t *testing.T) {
		ev := (&scriptedEvaluator{}).on("s.getStore()", `false`)
		_, ok, err := storeService{NewBridge(ev)}.PackStore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no pack list", func(t *testing.T) {
		ev := (&scriptedEvaluator{}).on("getUnopenedPacks !==", `null`)
		_, ok, err := packStore{NewBridge(ev)}.UnopenedPacks(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no distributor", func(t *testing.T) {
		ev := (&scriptedEvaluator{}).on("typeof s.sendAllToClubOrUnassigned", `false`)
		_, ok := storeService{NewBridge(ev)}.Distributor()
		assert.False(t, ok)
	})
}

func TestBridgeLocalStorage(t *testing.T) {
	ev := (&scriptedEvaluator{}).on("localStorage.getItem", `"[\"1\",\"2\"]"`)
	data, ok, err := NewBridge(ev).LocalStorage(context.Background(), "locked_players")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["1","2"]`, string(data))

	missing := (&scriptedEvaluator{}).on("localStorage.getItem", `null`)
	_, ok, err = NewBridge(missing).LocalStorage(context.Background(), "sbc_templates")
	require.NoError(t, err)
	assert.False(t, ok)
}
