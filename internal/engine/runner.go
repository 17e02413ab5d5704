package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/types"
)

const maxReportLog = 1000

// Report describes one filter run against a locus.
type Report struct {
	ID          uuid.UUID     `json:"id"`
	Filter      string        `json:"filter"`
	LocusID     string        `json:"locus_id"`
	AlertID     string        `json:"alert_id,omitempty"`
	OutputTag   string        `json:"output_tag"`
	Passed      bool          `json:"passed"`
	Check       Check         `json:"check,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	NewTags     []string      `json:"new_tags"`
	Error       string        `json:"error,omitempty"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Duration    time.Duration `json:"duration"`
}

// MetricsRecorder receives the outcome of every run.
type MetricsRecorder interface {
	ObserveRun(report *Report)
}

// ReportSink persists reports.
type ReportSink interface {
	RecordReport(ctx context.Context, report *Report) error
}

type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m MetricsRecorder) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithReportSink(sink ReportSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// Runner runs a QualityFilter against loci and keeps a bounded log of reports.
type Runner struct {
	filter  *QualityFilter
	logger  *zap.Logger
	metrics MetricsRecorder
	sink    ReportSink

	mu      sync.RWMutex
	reports []Report
}

func NewRunner(filter *QualityFilter, opts ...Option) *Runner {
	r := &Runner{
		filter:  filter,
		logger:  zap.NewNop(),
		reports: make([]Report, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Filter() *QualityFilter {
	return r.filter
}

// Run evaluates the locus and returns its report. The report is produced even
// when evaluation fails, with Error set.
func (r *Runner) Run(ctx context.Context, locus *types.Locus) (*Report, error) {
	start := time.Now()

	report := &Report{
		ID:          uuid.New(),
		Filter:      r.filter.Manifest().Name,
		LocusID:     locus.ID,
		OutputTag:   r.filter.OutputTag(),
		EvaluatedAt: start.UTC(),
	}
	if alert, err := locus.LatestAlert(); err == nil {
		report.AlertID = alert.ID
	}

	verdict, err := r.filter.Run(locus)
	report.Duration = time.Since(start)
	report.NewTags = locus.NewTags()

	if err != nil {
		report.Error = err.Error()
		r.logger.Warn("Filter evaluation failed",
			zap.String("locus_id", locus.ID),
			zap.Error(err))
	} else {
		report.Passed = verdict.Passed
		report.Check = verdict.Check
		report.Reason = verdict.Reason
		r.logger.Debug("Filter evaluated",
			zap.String("locus_id", locus.ID),
			zap.Bool("passed", verdict.Passed),
			zap.String("check", string(verdict.Check)),
			zap.Duration("duration", report.Duration))
	}

	r.logReport(*report)

	if r.metrics != nil {
		r.metrics.ObserveRun(report)
	}

	if r.sink != nil {
		if sinkErr := r.sink.RecordReport(ctx, report); sinkErr != nil {
			r.logger.Warn("Failed to record filter report",
				zap.String("report_id", report.ID.String()),
				zap.Error(sinkErr))
		}
	}

	return report, err
}

func (r *Runner) logReport(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report)

	// Keep only last 1000 entries
	if len(r.reports) > maxReportLog {
		r.reports = r.reports[len(r.reports)-maxReportLog:]
	}
}

// RecentReports returns up to limit reports, newest first. A non-empty check
// keeps only reports rejected by that check.
func (r *Runner) RecentReports(check Check, limit int) []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Report, 0)
	for i := len(r.reports) - 1; i >= 0; i-- {
		if limit > 0 && len(results) >= limit {
			break
		}
		rep := r.reports[i]
		if check != CheckNone && rep.Check != check {
			continue
		}
		results = append(results, rep)
	}
	return results
}

func (r *Runner) GetEvaluationStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.reports)
	passed, rejected, failed := 0, 0, 0
	byCheck := make(map[string]int)
	var totalDuration time.Duration

	for _, rep := range r.reports {
		switch {
		case rep.Error != "":
			failed++
		case rep.Passed:
			passed++
		default:
			rejected++
			byCheck[string(rep.Check)]++
		}
		totalDuration += rep.Duration
	}

	avgDuration := time.Duration(0)
	if total > 0 {
		avgDuration = totalDuration / time.Duration(total)
	}

	return map[string]interface{}{
		"total_evaluations": total,
		"passed":            passed,
		"rejected":          rejected,
		"errors":            failed,
		"rejected_by_check": byCheck,
		"avg_duration_us":   avgDuration.Microseconds(),
	}
}
