package matching

import (
	"context"
	"log/slog"

	"docufind/internal/jobs"
	recmodels "docufind/internal/records/models"
)

// NewMatchJob builds the job the record service enqueues after a record is stored.
func NewMatchJob(ref recmodels.Ref) (jobs.Job, error) {
	return jobs.New(jobs.KindMatchRecord, ref)
}

// JobHandler runs the engine for match_record jobs.
type JobHandler struct {
	engine *Engine
	logger *slog.Logger
}

func NewJobHandler(engine *Engine, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{engine: engine, logger: logger}
}

func (h *JobHandler) Handle(ctx context.Context, job jobs.Job) error {
	var ref recmodels.Ref
	if err := job.Decode(&ref); err != nil {
		return err
	}
	sent, err := h.engine.RunRef(ctx, ref)
	if err != nil {
		return err
	}
	h.logger.DebugContext(ctx, "match job done",
		"job_id", job.ID,
		"record", ref.String(),
		"notified", sent,
	)
	return nil
}
