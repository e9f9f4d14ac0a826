package governor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/promptbudget/budget"
	"github.com/yourusername/promptbudget/store"
)

type fakeNotifier struct {
	msgs []string
}

func (f *fakeNotifier) Notify(msg string) { f.msgs = append(f.msgs, msg) }

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestZoneTransitions(t *testing.T) {
	db := testDB(t)
	g := New(db, zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.SetBudget(ctx, "conv", 100))

	zone, err := g.Zone(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, ZoneGreen, zone)

	require.NoError(t, g.RecordUsage(ctx, "conv", 40, 25)) // 65%
	zone, err = g.Zone(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, ZoneYellow, zone)

	require.NoError(t, g.RecordUsage(ctx, "conv", 10, 10)) // 85%
	zone, err = g.Zone(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, ZoneOrange, zone)

	require.NoError(t, g.RecordUsage(ctx, "conv", 5, 5)) // 95%
	zone, err = g.Zone(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, ZoneRed, zone)
}

func TestZoneDefaultsWithoutBudgetRow(t *testing.T) {
	db := testDB(t)
	g := New(db, zerolog.Nop(), nil)
	ctx := context.Background()

	// Well under the 1M default limit.
	require.NoError(t, g.RecordUsage(ctx, "conv", 5000, 1000))
	zone, err := g.Zone(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, ZoneGreen, zone)
}

func TestZoneIsolatedPerConversation(t *testing.T) {
	db := testDB(t)
	g := New(db, zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.SetBudget(ctx, "hot", 100))
	require.NoError(t, g.SetBudget(ctx, "cold", 100))
	require.NoError(t, g.RecordUsage(ctx, "hot", 95, 0))

	zone, err := g.Zone(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, ZoneRed, zone)

	zone, err = g.Zone(ctx, "cold")
	require.NoError(t, err)
	assert.Equal(t, ZoneGreen, zone)
}

func TestCheckAlertsOncePerEscalation(t *testing.T) {
	db := testDB(t)
	notify := &fakeNotifier{}
	g := New(db, zerolog.Nop(), notify)
	ctx := context.Background()

	require.NoError(t, g.SetBudget(ctx, "conv", 100))
	require.NoError(t, g.RecordUsage(ctx, "conv", 65, 0))

	assert.Equal(t, ZoneYellow, g.Check(ctx, "conv"))
	require.Len(t, notify.msgs, 1)
	assert.Contains(t, notify.msgs[0], "YELLOW")

	// Same zone again — no duplicate alert.
	assert.Equal(t, ZoneYellow, g.Check(ctx, "conv"))
	assert.Len(t, notify.msgs, 1)

	// Escalation fires a new alert.
	require.NoError(t, g.RecordUsage(ctx, "conv", 30, 0)) // 95%
	assert.Equal(t, ZoneRed, g.Check(ctx, "conv"))
	require.Len(t, notify.msgs, 2)
	assert.Contains(t, notify.msgs[1], "RED")
}

func TestForZone(t *testing.T) {
	cfg := budget.Config{
		HardCeiling:     120_000,
		SystemPromptCap: 8000,
		ToolSchemaCap:   6000,
		MemoryCap:       4000,
		ToolResultCap:   4000,
		ReservedOutput:  8000,
	}

	assert.Equal(t, cfg, ForZone(cfg, ZoneGreen))

	yellow := ForZone(cfg, ZoneYellow)
	assert.Equal(t, 2000, yellow.MemoryCap)
	assert.Equal(t, 2000, yellow.ToolResultCap)
	assert.Equal(t, 6000, yellow.ToolSchemaCap)

	orange := ForZone(cfg, ZoneOrange)
	assert.Equal(t, 1000, orange.MemoryCap)
	assert.Equal(t, 1000, orange.ToolResultCap)
	assert.Equal(t, 3000, orange.ToolSchemaCap)

	red := ForZone(cfg, ZoneRed)
	assert.Equal(t, 0, red.MemoryCap)
	assert.Equal(t, 0, red.ToolResultCap)
	assert.Equal(t, 1500, red.ToolSchemaCap)
	assert.Equal(t, 4000, red.SystemPromptCap)

	// The budget envelope itself never shrinks.
	assert.Equal(t, cfg.HardCeiling, red.HardCeiling)
	assert.Equal(t, cfg.ReservedOutput, red.ReservedOutput)
}

func TestJanitorPruneOnce(t *testing.T) {
	db := testDB(t)
	j := NewJanitor(db, zerolog.Nop(), 90)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -120).Format("2006-01-02")
	recent := time.Now().Format("2006-01-02")
	_, err := db.ExecContext(ctx,
		`INSERT INTO token_usage (conversation_id, input_tokens, output_tokens, date) VALUES (?,?,?,?)`,
		"conv", 100, 50, old)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO token_usage (conversation_id, input_tokens, output_tokens, date) VALUES (?,?,?,?)`,
		"conv", 200, 80, recent)
	require.NoError(t, err)

	n, err := j.PruneOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM token_usage`).Scan(&remaining))
	assert.Equal(t, 1, remaining)
}
