package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Dami4lola/Ea-script/internal/config"
	"github.com/Dami4lola/Ea-script/internal/logging"
	"github.com/Dami4lola/Ea-script/internal/pacing"
	"github.com/Dami4lola/Ea-script/internal/session"
	"github.com/Dami4lola/Ea-script/internal/store"
	"github.com/Dami4lola/Ea-script/internal/surface"
	"github.com/Dami4lola/Ea-script/internal/surface/surfacetest"
)

type localStorage map[string]string

func (l localStorage) LocalStorage(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

type harness struct {
	blobs  *store.MemoryStore
	ch     *surfacetest.Challenge
	club   *surfacetest.Club
	st     *surfacetest.Store
	legacy localStorage
}

// setup points the commands at in-memory surfaces and blobs.
func setup(t *testing.T) *harness {
	t.Helper()
	color.NoColor = true
	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	workspace = t.TempDir()

	h := &harness{
		blobs: store.NewMemoryStore(),
		ch: &surfacetest.Challenge{Current: surface.ChallengeInfo{
			ID:    "sbc-1",
			Squad: []surface.Slot{{Position: "GK"}, {Position: "ST"}},
		}},
		club: surfacetest.NewClub(
			surface.Item{ID: "g1", Name: "Keeper", Rating: "84", PreferredPosition: "GK", StartingBid: surfacetest.Bid(300)},
			surface.Item{ID: "s1", Name: "Striker", Rating: "79", PreferredPosition: "ST"},
		),
		st:     surfacetest.NewStore("p1", "p2"),
		legacy: localStorage{},
	}
	h.ch.OnPlace = func(_, itemID string) { h.club.Consume(itemID) }

	prevOpen, prevBlobs := openSession, openBlobs
	openSession = func(ctx context.Context) (*session.Session, session.LegacySource, error) {
		s, err := session.New(session.Deps{
			Config:   cfg,
			Services: surfacetest.New(h.ch, h.club, h.st),
			Blobs:    h.blobs,
			Sleeper:  &pacing.Recorder{},
		})
		return s, h.legacy, err
	}
	openBlobs = func() (store.BlobStore, func() error, error) {
		return h.blobs, func() error { return nil }, nil
	}
	t.Cleanup(func() {
		openSession, openBlobs = prevOpen, prevBlobs
		workspace = ""
	})
	return h
}

func execute(t *testing.T, run func(*cobra.Command, []string) error, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	if cmd == nil {
		cmd = &cobra.Command{}
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := run(cmd, args)
	return out.String(), err
}

func TestTemplateSaveAndList(t *testing.T) {
	setup(t)

	out, err := execute(t, templateSave, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Template saved for SBC: sbc-1 (GK, ST)")

	out, err = execute(t, templateList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "sbc-1")
	assert.Contains(t, out, "2 slots")
	assert.Contains(t, out, "GK ST")
}

func TestTemplateListEmpty(t *testing.T) {
	setup(t)
	out, err := execute(t, templateList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No templates saved.")
}

func TestTemplateDelete(t *testing.T) {
	setup(t)

	_, err := execute(t, templateDelete, nil, "missing")
	assert.ErrorContains(t, err, "no template for SBC missing")

	_, err = execute(t, templateSave, nil)
	require.NoError(t, err)
	out, err := execute(t, templateDelete, nil, "sbc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted template sbc-1")

	out, err = execute(t, templateList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No templates saved.")
}

func TestTemplateSaveOutsideChallenge(t *testing.T) {
	h := setup(t)
	h.ch = nil

	_, err := execute(t, templateSave, nil)
	require.Error(t, err)
	assert.True(t, surface.IsKind(err, surface.KindSurfaceUnavailable))
}

func newToggleCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("name", "", "")
	cmd.Flags().String("rating", "", "")
	cmd.Flags().String("pos", "", "")
	return cmd
}

func TestLockToggleAndList(t *testing.T) {
	setup(t)

	cmd := newToggleCmd()
	require.NoError(t, cmd.Flags().Set("name", "Keeper"))
	require.NoError(t, cmd.Flags().Set("rating", "84"))
	require.NoError(t, cmd.Flags().Set("pos", "GK"))
	out, err := execute(t, lockToggle, cmd, "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "Locked g1")

	out, err = execute(t, lockList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Keeper – 84 GK")

	out, err = execute(t, lockToggle, newToggleCmd(), "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "Unlocked g1")

	out, err = execute(t, lockList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No locked players")
}

func TestLockClubMarksLocked(t *testing.T) {
	setup(t)
	_, err := execute(t, lockToggle, newToggleCmd(), "s1")
	require.NoError(t, err)

	out, err := execute(t, lockClub, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "🔒 s1")
	assert.Contains(t, out, "🔓 g1")
	assert.Contains(t, out, "2 players, 1 locked")
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("template", "t", "", "")
	cmd.Flags().Bool("dry-run", false, "")
	return cmd
}

func TestRunFillsUntilExhausted(t *testing.T) {
	h := setup(t)
	_, err := execute(t, templateSave, nil)
	require.NoError(t, err)

	out, err := execute(t, runAutofill, newRunCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Auto running on template sbc-1")
	assert.Contains(t, out, "No more players. Submitted 1 SBCs (2 players placed).")
	assert.Equal(t, 1, h.ch.Submits())
}

func TestRunWithoutTemplate(t *testing.T) {
	setup(t)
	_, err := execute(t, runAutofill, newRunCmd())
	assert.True(t, surface.IsKind(err, surface.KindNoTemplateSelected))
}

func TestRunDryRun(t *testing.T) {
	h := setup(t)
	_, err := execute(t, templateSave, nil)
	require.NoError(t, err)

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))
	require.NoError(t, cmd.Flags().Set("template", "sbc-1"))
	out, err := execute(t, runAutofill, cmd)
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 slots would be filled")
	assert.Empty(t, h.ch.Placements())
}

func TestPacksOpen(t *testing.T) {
	h := setup(t)

	out, err := execute(t, openPacks, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Opened 2/2 packs, distributed 2")
	assert.Contains(t, out, "All packs opened!")
	assert.NotEmpty(t, h.st.Calls())
}

func TestPacksOpenWithoutStore(t *testing.T) {
	h := setup(t)
	h.st = nil

	_, err := execute(t, openPacks, nil)
	require.Error(t, err)
	assert.Equal(t, "Open Store → My Packs first, then press the button again.", surface.GuidanceOf(err))
}

func TestStatus(t *testing.T) {
	h := setup(t)
	h.st = nil

	out, err := execute(t, showStatus, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "SBC:✔")
	assert.Contains(t, out, "Store:…")
	assert.Contains(t, out, "Templates: 0  Locked: 0")
}

func TestImport(t *testing.T) {
	h := setup(t)
	h.legacy[store.KeyTemplates] = `{"777":{"challengeId":777,"positions":["GK"]}}`
	h.legacy[store.KeyLocks] = `["g1",{"id":"s1","name":"Striker"}]`

	out, err := execute(t, importLegacy, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 templates and 2 locks")

	out, err = execute(t, templateList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "777")
}

func TestBackup(t *testing.T) {
	setup(t)
	s, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	require.NoError(t, err)
	require.NoError(t, s.Put(store.KeyLocks, []byte(`["g1"]`)))
	require.NoError(t, s.Close())

	dest := filepath.Join(t.TempDir(), "copy.db")
	out, err := execute(t, runBackup, nil, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup written to "+dest)
	assert.Contains(t, out, "(locked_players)")

	copied, err := store.NewSQLiteStore(dest)
	require.NoError(t, err)
	defer copied.Close()
	data, ok, err := copied.Get(store.KeyLocks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["g1"]`, string(data))
}

func TestHistoryListAndRestore(t *testing.T) {
	setup(t)
	s, err := store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	require.NoError(t, err)
	require.NoError(t, s.Put(store.KeyLocks, []byte(`["g1","s1"]`)))
	require.NoError(t, s.Put(store.KeyLocks, []byte(`["g1"]`)))
	revs, err := s.History(store.KeyLocks)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.NoError(t, s.Close())

	out, err := execute(t, showHistory, newHistoryCmd(), "locks")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")

	out, err = execute(t, showHistory, newHistoryCmd(), "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "No earlier templates.")

	cmd := newHistoryCmd()
	require.NoError(t, cmd.Flags().Set("restore", "999"))
	_, err = execute(t, showHistory, cmd, "locks")
	assert.ErrorContains(t, err, "no locks revision 999")

	cmd = newHistoryCmd()
	require.NoError(t, cmd.Flags().Set("restore", fmt.Sprint(revs[0].ID)))
	out, err = execute(t, showHistory, cmd, "locks")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored locks revision")

	s, err = store.NewSQLiteStore(cfg.ResolveDatabasePath(workspace))
	require.NoError(t, err)
	defer s.Close()
	data, _, err := s.Get(store.KeyLocks)
	require.NoError(t, err)
	assert.Equal(t, `["g1","s1"]`, string(data))

	_, err = execute(t, showHistory, newHistoryCmd(), "players")
	assert.Error(t, err)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Int64("restore", 0, "")
	return cmd
}

func resetLogging(t *testing.T) {
	ws := t.TempDir()
	t.Cleanup(func() {
		_ = logging.Configure(ws, logging.Settings{})
	})
}

func TestLogLevelFromEnvironment(t *testing.T) {
	setup(t)
	resetLogging(t)
	t.Setenv("EATOOLS_LOG_LEVEL", "debug")

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, zapcore.DebugLevel, logging.Level())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfigFlagReachesLogging(t *testing.T) {
	setup(t)
	resetLogging(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  debug_mode: true\n  level: error\n"), 0644))
	configPath = path
	t.Cleanup(func() { configPath = "" })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.True(t, logging.IsDebugMode())
	assert.Equal(t, zapcore.ErrorLevel, logging.Level())
	assert.NotEmpty(t, logging.AuditPath(), "audit trail opens in debug mode")
}
