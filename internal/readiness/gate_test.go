package readiness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dami4lola/Ea-script/internal/surface"
	"github.com/Dami4lola/Ea-script/internal/surface/surfacetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProbeRaisesFlags(t *testing.T) {
	svc := surfacetest.New(nil, nil, nil)
	g := NewGate(svc)

	assert.False(t, g.Probe(), "nothing present, nothing changes")
	assert.Equal(t, State{}, g.State())

	svc.SetClub(surfacetest.NewClub())
	assert.True(t, g.Probe())
	assert.True(t, g.IsReady(surface.Inventory))
	assert.False(t, g.IsReady(surface.Challenge))
	assert.False(t, g.IsReady(surface.Store))
}

func TestFlagsAreMonotonic(t *testing.T) {
	svc := surfacetest.New(&surfacetest.Challenge{}, surfacetest.NewClub(), surfacetest.NewStore())
	g := NewGate(svc)
	g.Probe()
	require.Equal(t, State{Challenge: true, Inventory: true, Store: true}, g.State())

	svc.SetChallenge(nil)
	svc.SetClub(nil)
	svc.SetStore(nil)
	assert.False(t, g.Probe())
	assert.Equal(t, State{Challenge: true, Inventory: true, Store: true}, g.State(), "flags never drop")
}

func TestRequire(t *testing.T) {
	svc := surfacetest.New(nil, surfacetest.NewClub(), nil)
	g := NewGate(svc)

	err := g.Require("run", surface.Inventory, surface.Challenge)
	require.Error(t, err)
	assert.True(t, surface.IsKind(err, surface.KindSurfaceUnavailable))
	assert.Contains(t, surface.GuidanceOf(err), "Open any SBC challenge")

	svc.SetChallenge(&surfacetest.Challenge{})
	assert.NoError(t, g.Require("run", surface.Inventory, surface.Challenge), "on-demand probe picks up a late surface")
}

func TestRequireGuidancePerSurface(t *testing.T) {
	g := NewGate(surfacetest.New(nil, nil, nil))
	tests := []struct {
		kind surface.Kind
		want string
	}{
		{surface.Challenge, "Open any SBC challenge"},
		{surface.Inventory, "Open Club → Players first"},
		{surface.Store, "Open Store → My Packs first"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := g.Require("op", tt.kind)
			require.Error(t, err)
			assert.Contains(t, surface.GuidanceOf(err), tt.want)
		})
	}
}

func TestOnChangeFiresOncePerTransition(t *testing.T) {
	svc := surfacetest.New(nil, nil, nil)
	g := NewGate(svc)

	var calls atomic.Int32
	g.OnChange(func(State) { calls.Add(1) })

	g.Probe()
	svc.SetStore(surfacetest.NewStore())
	g.Probe()
	g.Probe()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunPollsUntilCancelled(t *testing.T) {
	svc := surfacetest.New(nil, nil, nil)
	g := NewGate(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, 5*time.Millisecond) }()

	svc.SetChallenge(&surfacetest.Challenge{})
	require.Eventually(t, func() bool { return g.IsReady(surface.Challenge) }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStateLine(t *testing.T) {
	assert.Equal(t, "Services — SBC:…  Club:…  Store:…", State{}.Line())
	assert.Equal(t, "Services — SBC:✔  Club:…  Store:✔", State{Challenge: true, Store: true}.Line())
}
