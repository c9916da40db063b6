//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dami4lola/Ea-script/internal/browser"
	"github.com/Dami4lola/Ea-script/internal/surface"

	"github.com/stretchr/testify/require"
)

// fakeHost serves a page whose window.services mimics the web app.
const fakeHost = `<html><body><script>
window.placed = [];
window.services = {
	SBCChallengeService: {
		getCurrentChallenge: () => ({
			getDefinition: () => ({ id: 501 }),
			getSquad: () => [{ position: "GK" }, { position: "ST" }],
		}),
		placePlayerInSlot: async (cid, pos, id) => { window.placed.push([cid, pos, id]); },
		submitChallenge: async (id) => { window.submitted = id; },
	},
	ClubService: {
		requestClubPlayers: async () => [
			{ id: 11, preferredPosition: "GK", _auction: { _startingBid: 200 }, isInSquad: () => false },
			{ id: 12, preferredPosition: "ST", isInSquad: () => true },
		],
	},
};
localStorage.setItem("locked_players", JSON.stringify(["12"]));
</script></body></html>`

func TestBridge_FakeHost_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintln(w, fakeHost)
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.AppURL = ts.URL + "/"
	cfg.NavigationTimeout = 10 * time.Second

	mgr := browser.NewManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer func() {
		if err := mgr.Shutdown(context.Background()); err != nil {
			t.Logf("Shutdown error: %v", err)
		}
	}()

	eval, err := mgr.Evaluator(ctx)
	require.NoError(t, err, "Failed to open app tab")
	info, ok := mgr.Info()
	require.True(t, ok)
	require.NotEmpty(t, info.SessionID)
	require.True(t, info.Launched)

	b := browser.NewBridge(eval)
	require.Eventually(t, func() bool { return surface.Present(b, surface.Challenge) }, 10*time.Second, 100*time.Millisecond)
	require.False(t, surface.Present(b, surface.Store))

	ch, ok := b.Challenge()
	require.True(t, ok)
	current, err := ch.CurrentChallenge(ctx)
	require.NoError(t, err)
	require.Equal(t, "501", current.ID)
	require.Equal(t, []string{"GK", "ST"}, current.Positions())
	require.NoError(t, ch.PlacePlayerInSlot(ctx, "501", "GK", "11"))
	require.NoError(t, ch.SubmitChallenge(ctx, "501"))

	club, ok := b.Club()
	require.True(t, ok)
	items, err := club.RequestClubPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "11", items[0].ID)
	require.Equal(t, int64(200), items[0].Cost())
	require.True(t, items[1].InSquad)

	raw, ok, err := b.LocalStorage(ctx, "locked_players")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `["12"]`, string(raw))
}
