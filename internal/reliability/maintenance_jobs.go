package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/capacity-planner/internal/database"
	"github.com/aristath/capacity-planner/internal/metrics"
)

const (
	criticalFreeBytes uint64 = 500 << 20
	lowFreeBytes      uint64 = 5 << 30
)

// RunPruner trims the optimization run audit trail
type RunPruner interface {
	PruneRuns(ctx context.Context, keep int) (int64, error)
}

// DailyMaintenanceJob keeps the planner database small and healthy
type DailyMaintenanceJob struct {
	db        *database.DB
	runs      RunPruner
	retention int
	dataDir   string
	diskUsage func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(
	db *database.DB,
	runs RunPruner,
	retention int,
	dataDir string,
	log zerolog.Logger,
) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:        db,
		runs:      runs,
		retention: retention,
		dataDir:   dataDir,
		diskUsage: disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Step 1: integrity check; a corrupt database halts maintenance
	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("CRITICAL: %w", err)
	}

	// Step 2: trim the run audit trail
	deleted, err := j.runs.PruneRuns(ctx, j.retention)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to prune optimization runs")
	}

	// Step 3: WAL checkpoint (prevent bloat)
	if err := j.db.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}
	if deleted > 0 {
		if err := j.db.ReclaimSpace(ctx, 0); err != nil {
			j.log.Warn().Err(err).Msg("Failed to reclaim freed pages")
		}
	}

	j.recordDatabaseSize(ctx)

	// Step 4: disk space
	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Int64("runs_pruned", deleted).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *DailyMaintenanceJob) recordDatabaseSize(ctx context.Context) {
	stats, err := j.db.GetStats(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read database stats")
		return
	}
	metrics.DatabaseSizeBytes.WithLabelValues("db").Set(float64(stats.SizeBytes))
	metrics.DatabaseSizeBytes.WithLabelValues("wal").Set(float64(stats.WALSizeBytes))

	j.log.Info().
		Float64("size_mb", float64(stats.SizeBytes)/1024/1024).
		Float64("wal_size_mb", float64(stats.WALSizeBytes)/1024/1024).
		Int64("freelist_pages", stats.FreelistCount).
		Msg("Database metrics")
}

// checkDiskSpace verifies sufficient disk space is available
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	metrics.DiskFreeBytes.Set(float64(usage.Free))
	availableGB := float64(usage.Free) / 1e9

	switch {
	case usage.Free < criticalFreeBytes:
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %.2f GB free in %s", availableGB, j.dataDir)
	case usage.Free < lowFreeBytes:
		j.log.Warn().
			Float64("available_gb", availableGB).
			Float64("used_percent", usage.UsedPercent).
			Msg("Disk space running low")
	default:
		j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")
	}

	return nil
}
