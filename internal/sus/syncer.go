package sus

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"go.uber.org/zap"
)

// Report summarises one sync run. Read = Sent + Skipped + Failed unless the
// run was cancelled.
type Report struct {
	Read    int `json:"read"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Syncer struct {
	source  Source
	sink    Sink
	metrics *metrics.Collector
	log     *zap.Logger

	// DryRun reads and validates without sending; valid rows count as skipped.
	DryRun bool
}

func NewSyncer(source Source, sink Sink, m *metrics.Collector, log *zap.Logger) *Syncer {
	return &Syncer{source: source, sink: sink, metrics: m, log: log}
}

// Run pushes every source record to the sink, one at a time. A bad row or a
// failed push is logged and counted; the run carries on.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	var rep Report

	records, err := s.source.Records(ctx)
	if err != nil {
		return rep, fmt.Errorf("reading SUS records: %w", err)
	}
	rep.Read = len(records)
	s.log.Info("SUS records loaded", zap.Int("count", rep.Read), zap.Bool("dry_run", s.DryRun))

	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		if err := r.Validate(); err != nil {
			s.count(&rep.Failed, "invalid")
			s.log.Warn("skipping invalid SUS row", zap.Int("row", i), zap.Error(err))
			continue
		}
		if s.DryRun {
			s.count(&rep.Skipped, "dry_run")
			continue
		}

		err := s.sink.Send(ctx, r)
		switch {
		case err == nil:
			s.count(&rep.Sent, "sent")
		case errors.Is(err, ErrDuplicate):
			s.count(&rep.Skipped, "duplicate")
		default:
			s.count(&rep.Failed, "failed")
			s.log.Error("failed to send SUS record",
				zap.Int("row", i),
				zap.String("sus_card", r.SUSCard),
				zap.Error(err),
			)
		}
	}

	s.log.Info("SUS sync finished",
		zap.Int("read", rep.Read),
		zap.Int("sent", rep.Sent),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (s *Syncer) count(n *int, result string) {
	*n++
	if s.metrics != nil {
		s.metrics.SUSRecordsTotal.WithLabelValues(result).Inc()
	}
}
