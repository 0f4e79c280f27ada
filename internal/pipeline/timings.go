package pipeline

import (
	"time"

	"go.uber.org/zap"
)

type stageTiming struct {
	start    time.Time
	duration time.Duration
}

// StageTimings records wall-clock durations per pipeline stage for the
// end-of-run summary.
type StageTimings struct {
	order  []string
	stages map[string]*stageTiming
}

func NewStageTimings() *StageTimings {
	return &StageTimings{stages: make(map[string]*stageTiming)}
}

func (t *StageTimings) Start(stage string) {
	t.order = append(t.order, stage)
	t.stages[stage] = &stageTiming{start: time.Now()}
}

func (t *StageTimings) End(stage string) {
	if s, ok := t.stages[stage]; ok {
		s.duration = time.Since(s.start)
	}
}

func (t *StageTimings) Log(logger *zap.Logger) {
	fields := make([]zap.Field, 0, len(t.order))
	for _, stage := range t.order {
		fields = append(fields, zap.Duration(stage, t.stages[stage].duration))
	}
	logger.Info("build finished", fields...)
}
