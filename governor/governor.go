// Package governor tracks daily token spend per conversation and maps it to
// budget zones. Zones tighten the enforcement caps as spend escalates, so a
// runaway conversation degrades its own context richness before it burns
// the daily allowance.
package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/promptbudget/budget"
	"github.com/yourusername/promptbudget/store"
)

// Zone represents the current token usage level.
type Zone int

const (
	ZoneGreen  Zone = iota // 0–60%: full caps
	ZoneYellow             // 60–80%: memory and tool-result caps halved
	ZoneOrange             // 80–90%: optional context quartered, tool cap halved
	ZoneRed                // 90–100%: minimum context only
)

// String returns a human-readable label for the zone.
func (z Zone) String() string {
	switch z {
	case ZoneYellow:
		return "YELLOW"
	case ZoneOrange:
		return "ORANGE"
	case ZoneRed:
		return "RED"
	default:
		return "GREEN"
	}
}

// Default thresholds when a conversation has no token_budgets row.
const (
	defaultDailyLimit = 1_000_000
	defaultYellowPct  = 60
	defaultOrangePct  = 80
	defaultRedPct     = 90
)

// Notifier receives zone escalation alerts. May be nil.
type Notifier interface {
	Notify(msg string)
}

// Governor checks token budget zones and reports zone escalations.
type Governor struct {
	db     *store.DB
	log    zerolog.Logger
	notify Notifier

	// Track last known zone per conversation to avoid duplicate alerts.
	mu       sync.Mutex
	lastZone map[string]Zone
}

// New creates a Governor. notify may be nil (log-only alerts).
func New(db *store.DB, log zerolog.Logger, notify Notifier) *Governor {
	return &Governor{
		db:       db,
		log:      log,
		notify:   notify,
		lastZone: make(map[string]Zone),
	}
}

// Zone calculates the current zone for a conversation based on today's
// token usage against its configured (or default) daily limit.
func (g *Governor) Zone(ctx context.Context, conversationID string) (Zone, error) {
	today := time.Now().Format("2006-01-02")

	var used int
	err := g.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens + output_tokens), 0)
		FROM token_usage
		WHERE conversation_id=? AND date=?`, conversationID, today,
	).Scan(&used)
	if err != nil {
		return ZoneGreen, fmt.Errorf("governor.Zone: usage query: %w", err)
	}

	// Fetch budget thresholds; use defaults if not configured.
	var dailyLimit, yellowPct, orangePct, redPct int
	err = g.db.QueryRowContext(ctx, `
		SELECT daily_limit, yellow_pct, orange_pct, red_pct
		FROM token_budgets WHERE conversation_id=?`, conversationID,
	).Scan(&dailyLimit, &yellowPct, &orangePct, &redPct)
	if err != nil {
		dailyLimit = defaultDailyLimit
		yellowPct = defaultYellowPct
		orangePct = defaultOrangePct
		redPct = defaultRedPct
	}

	if dailyLimit <= 0 {
		return ZoneGreen, nil
	}

	pct := (used * 100) / dailyLimit
	switch {
	case pct >= redPct:
		return ZoneRed, nil
	case pct >= orangePct:
		return ZoneOrange, nil
	case pct >= yellowPct:
		return ZoneYellow, nil
	default:
		return ZoneGreen, nil
	}
}

// Check returns the current zone and alerts once per escalation. Errors are
// logged, not returned — the governor never blocks a chat turn.
func (g *Governor) Check(ctx context.Context, conversationID string) Zone {
	zone, err := g.Zone(ctx, conversationID)
	if err != nil {
		g.log.Error().Err(err).Str("conversation", conversationID).Msg("governor check failed")
		return ZoneGreen
	}

	g.mu.Lock()
	prev, known := g.lastZone[conversationID]
	g.lastZone[conversationID] = zone
	g.mu.Unlock()
	if known && zone <= prev {
		return zone // No escalation — don't re-alert.
	}

	if zone > ZoneGreen {
		g.log.Warn().
			Str("conversation", conversationID).
			Stringer("zone", zone).
			Msg("token budget zone escalated")
		if g.notify != nil {
			g.notify.Notify(fmt.Sprintf(
				"conversation %s token budget at %s — tightening context caps", conversationID, zone))
		}
	}
	return zone
}

// RecordUsage saves one provider call's token spend.
func (g *Governor) RecordUsage(ctx context.Context, conversationID string, inputTokens, outputTokens int) error {
	today := time.Now().Format("2006-01-02")
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO token_usage (conversation_id, input_tokens, output_tokens, date)
		VALUES (?,?,?,?)`,
		conversationID, inputTokens, outputTokens, today,
	)
	if err != nil {
		return fmt.Errorf("governor.RecordUsage: %w", err)
	}
	return nil
}

// SetBudget configures the daily limit for a conversation, keeping the
// default zone thresholds.
func (g *Governor) SetBudget(ctx context.Context, conversationID string, dailyLimit int) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO token_budgets (conversation_id, daily_limit)
		VALUES (?,?)
		ON CONFLICT(conversation_id) DO UPDATE SET daily_limit=excluded.daily_limit`,
		conversationID, dailyLimit,
	)
	if err != nil {
		return fmt.Errorf("governor.SetBudget: %w", err)
	}
	return nil
}

// ForZone returns a copy of cfg with caps tightened for the zone. GREEN
// returns cfg unchanged. The hard ceiling and reserved output never change —
// only the optional-content caps shrink.
func ForZone(cfg budget.Config, z Zone) budget.Config {
	switch z {
	case ZoneYellow:
		cfg.MemoryCap /= 2
		cfg.ToolResultCap /= 2
	case ZoneOrange:
		cfg.MemoryCap /= 4
		cfg.ToolResultCap /= 4
		cfg.ToolSchemaCap /= 2
	case ZoneRed:
		cfg.MemoryCap = 0
		cfg.ToolResultCap = 0
		cfg.ToolSchemaCap /= 4
		cfg.SystemPromptCap /= 2
	}
	return cfg
}
