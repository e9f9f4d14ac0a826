package governor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/yourusername/promptbudget/store"
)

// pruneSchedule runs the nightly prune shortly after midnight, once the
// day's usage rows have rolled over.
const pruneSchedule = "5 0 * * *"

// Janitor prunes aged token_usage rows on a nightly cron schedule so the
// usage table doesn't grow without bound.
type Janitor struct {
	cron          *cron.Cron
	db            *store.DB
	log           zerolog.Logger
	retentionDays int
}

// NewJanitor creates a Janitor. retentionDays <= 0 defaults to 90.
func NewJanitor(db *store.DB, log zerolog.Logger, retentionDays int) *Janitor {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Janitor{
		cron:          cron.New(),
		db:            db,
		log:           log,
		retentionDays: retentionDays,
	}
}

// Start schedules the nightly prune and stops the cron engine when ctx is
// cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(pruneSchedule, func() {
		n, err := j.PruneOnce(ctx)
		if err != nil {
			j.log.Error().Err(err).Msg("usage prune failed")
			return
		}
		j.log.Info().Int64("rows", n).Int("retention_days", j.retentionDays).Msg("usage pruned")
	})
	if err != nil {
		return fmt.Errorf("governor.Janitor.Start: %w", err)
	}
	j.cron.Start()
	go func() {
		<-ctx.Done()
		j.cron.Stop()
	}()
	return nil
}

// PruneOnce deletes usage rows older than the retention window and returns
// the number of rows removed.
func (j *Janitor) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays).Format("2006-01-02")
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM token_usage WHERE date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("governor.PruneOnce: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
