package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/capacity-planner/internal/database"
	"github.com/aristath/capacity-planner/internal/scheduler"
)

// SystemHandlers handles system monitoring and job trigger endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	db          *database.DB
	startupTime time.Time

	mu   sync.RWMutex
	jobs map[string]scheduler.Job
	// running tracks manually triggered jobs so a second trigger is refused
	running map[string]bool
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		db:          db,
		startupTime: time.Now(),
		jobs:        make(map[string]scheduler.Job),
		running:     make(map[string]bool),
	}
}

// SetJobs registers jobs for manual triggering
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
}

// PlanningCounts summarizes the stored planning data
type PlanningCounts struct {
	Periods     int        `json:"periods"`
	People      int        `json:"people"`
	Projects    int        `json:"projects"`
	Assignments int        `json:"assignments"`
	Runs        int        `json:"optimization_runs"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
}

// DiskUsageResponse represents disk usage of the data volume
type DiskUsageResponse struct {
	TotalMB     float64 `json:"total_mb"`
	AvailableMB float64 `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	CPUPercent    float64            `json:"cpu_percent"`
	RAMPercent    float64            `json:"ram_percent"`
	Disk          *DiskUsageResponse `json:"disk,omitempty"`
	Database      *database.Stats    `json:"database,omitempty"`
	Planning      PlanningCounts     `json:"planning"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	ctx := r.Context()

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
	}

	if usage, err := disk.Usage(h.dataDir); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		response.Disk = &DiskUsageResponse{
			TotalMB:     float64(usage.Total) / 1024 / 1024,
			AvailableMB: float64(usage.Free) / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
		}
	}

	if stats, err := h.db.GetStats(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
		response.Status = "degraded"
	} else {
		response.Database = stats
	}

	counts, err := h.planningCounts(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count planning data")
		response.Status = "degraded"
	}
	response.Planning = counts

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get database stats"})
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	type jobStatus struct {
		Name    string `json:"name"`
		Running bool   `json:"running"`
	}
	jobs := make([]jobStatus, 0, len(h.jobs))
	for name := range h.jobs {
		jobs = append(jobs, jobStatus{Name: name, Running: h.running[name]})
	}
	h.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}.
// The job runs in the background; the response only acknowledges the trigger.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.Lock()
	job, ok := h.jobs[name]
	if !ok {
		h.mu.Unlock()
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "job not registered: " + name})
		return
	}
	if h.running[name] {
		h.mu.Unlock()
		h.writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "job already running: " + name})
		return
	}
	h.running[name] = true
	h.mu.Unlock()

	h.log.Info().Str("job", name).Msg("Manual job triggered")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.running, name)
			h.mu.Unlock()
		}()
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "success", "message": name + " triggered"})
}

func (h *SystemHandlers) planningCounts(ctx context.Context) (PlanningCounts, error) {
	var (
		counts  PlanningCounts
		lastRun sql.NullInt64
	)
	err := h.db.Conn().QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM planning_periods),
			(SELECT COUNT(*) FROM people),
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM assignments),
			(SELECT COUNT(*) FROM optimization_runs),
			(SELECT MAX(calculated_at) FROM optimization_runs)
	`).Scan(&counts.Periods, &counts.People, &counts.Projects, &counts.Assignments, &counts.Runs, &lastRun)
	if err != nil {
		return counts, err
	}
	if lastRun.Valid {
		t := time.Unix(lastRun.Int64, 0).UTC()
		counts.LastRunAt = &t
	}
	return counts, nil
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the status call fast
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
