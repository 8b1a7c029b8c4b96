// Package worker turns queued judge requests into persisted verdicts.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/judgeworker/judge0"
	"github.com/programme-lv/judgeworker/logger"
	"github.com/programme-lv/judgeworker/problemstore"
	"github.com/programme-lv/judgeworker/sqsqueue"
	"github.com/programme-lv/judgeworker/srvcerror"
	"github.com/programme-lv/judgeworker/submstore"
	"github.com/programme-lv/judgeworker/verdict"
)

type Queue interface {
	ReceiveOne(ctx context.Context) (*sqsqueue.Message, error)
	Delete(ctx context.Context, handle string) error
}

type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (submstore.Submission, error)
	MarkJudged(ctx context.Context, id string, result string, runtime string) (submstore.Submission, error)
}

type ProblemStore interface {
	GetHiddenTestCases(ctx context.Context, problemID string) ([]problemstore.TestCase, error)
}

type Judge interface {
	RunOne(ctx context.Context, code string, lang string, tc judge0.TestCase) (verdict.Outcome, error)
	RunBatch(ctx context.Context, code string, lang string, tcs []judge0.TestCase) ([]verdict.Outcome, error)
}

type StatsNotifier interface {
	NotifyAccepted(ctx context.Context, userID string, problemID string) error
}

type DispatchMode string

const (
	DispatchSequential DispatchMode = "sequential"
	DispatchBatch      DispatchMode = "batch"
)

type Orchestrator struct {
	logger   *slog.Logger
	queue    Queue
	subms    SubmissionStore
	problems ProblemStore
	judge    Judge
	stats    StatsNotifier // nil disables notifications
	mode     DispatchMode

	cycleMu  sync.Mutex // cycles never overlap
	mu       sync.Mutex
	last     *CycleReport
	counters Counters
}

func NewOrchestrator(
	queue Queue,
	subms SubmissionStore,
	problems ProblemStore,
	judge Judge,
	stats StatsNotifier,
	mode DispatchMode,
) *Orchestrator {
	if mode == "" {
		mode = DispatchSequential
	}
	return &Orchestrator{
		logger:   slog.Default().With("module", "worker"),
		queue:    queue,
		subms:    subms,
		problems: problems,
		judge:    judge,
		stats:    stats,
		mode:     mode,
	}
}

// RunCycle leases at most one message and carries it as far through
// the pipeline as it can. The message is deleted only once a verdict
// is stored or the submission turns out to be judged already. Any
// error before that leaves the message to reappear after its lease.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	report := CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
		State:     StateIdle,
	}
	ctx = logger.WithCycleID(logger.WithLogger(ctx, o.logger), report.CycleID)
	log := logger.FromContext(ctx)

	err := o.runCycle(ctx, &report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.FailedIn = report.State
		report.State = StateFailed
		report.Error = err.Error()
		log.Error("cycle failed",
			"failed_in", report.FailedIn,
			"message_id", report.MessageID,
			"submission_id", report.SubmissionID,
			"error_code", srvcerror.Code(err),
			"error", err)
	} else if report.State != StateIdle {
		log.Info("cycle finished",
			"state", report.State,
			"message_id", report.MessageID,
			"submission_id", report.SubmissionID,
			"duration", report.Duration)
	}

	o.record(report)
	return report, err
}

func (o *Orchestrator) runCycle(ctx context.Context, report *CycleReport) error {
	log := logger.FromContext(ctx)

	msg, err := o.queue.ReceiveOne(ctx)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	report.State = StateLeased
	report.MessageID = msg.ID
	if !msg.SentAt.IsZero() {
		report.QueuedFor = report.StartedAt.Sub(msg.SentAt)
		QueueLatency.Observe(report.QueuedFor.Seconds())
	}
	if msg.ParseErr != nil {
		return fmt.Errorf("failed to parse message %s: %w", msg.ID, msg.ParseErr)
	}
	report.SubmissionID = msg.Ref.SubmissionID
	ctx = logger.With(ctx, "message_id", msg.ID, "submission_id", msg.Ref.SubmissionID)
	log = logger.FromContext(ctx)
	log.Debug("leased message", "queued_for", report.QueuedFor)

	subm, err := o.subms.GetByID(ctx, msg.Ref.SubmissionID)
	if err != nil {
		return err
	}
	if subm.Judged {
		report.State = StateAlreadyJudged
		log.Info("submission already judged, dropping message")
		return o.queue.Delete(ctx, msg.Handle)
	}

	tcs, err := o.problems.GetHiddenTestCases(ctx, subm.ProblemID)
	if err != nil {
		return err
	}
	report.State = StateLoaded

	v, err := o.dispatch(ctx, subm, tcs, report)
	if err != nil {
		return err
	}
	report.State = StateAggregated
	report.Verdict = &v

	_, err = o.subms.MarkJudged(ctx, subm.ID, v.Result, v.Runtime)
	if err != nil {
		if srvcerror.HasCode(err, submstore.ErrCodeAlreadyJudged) {
			// judged by a concurrent delivery of the same request
			report.State = StateAlreadyJudged
			report.Verdict = nil
			log.Info("verdict already stored, dropping message")
			return o.queue.Delete(ctx, msg.Handle)
		}
		return err
	}
	report.State = StatePersisted
	VerdictsTotal.WithLabelValues(v.Result).Inc()

	if err := o.queue.Delete(ctx, msg.Handle); err != nil {
		// the verdict is durable, a redelivery hits the status gate
		log.Error("failed to delete message after persisting verdict", "error", err)
		report.AckError = err.Error()
	} else {
		report.State = StateAcknowledged
	}

	if v.IsAccepted() {
		o.notify(ctx, subm, report)
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, subm submstore.Submission, tcs []problemstore.TestCase, report *CycleReport) (verdict.Verdict, error) {
	if len(tcs) == 0 {
		return verdict.Verdict{}, verdict.ErrNoTestCases().
			SetDebug(fmt.Errorf("problem %s has no hidden test cases", subm.ProblemID))
	}
	report.State = StateDispatching

	var agg verdict.Aggregator
	switch o.mode {
	case DispatchBatch:
		outcomes, err := o.judge.RunBatch(ctx, subm.Code, subm.Language, toJudgeCases(tcs))
		JudgeCallsTotal.WithLabelValues(string(o.mode)).Add(float64(len(tcs)))
		if err != nil {
			return verdict.Verdict{}, err
		}
		report.TestsRun = len(outcomes)
		for _, out := range outcomes {
			if agg.Add(out) {
				break
			}
		}
	default:
		for _, tc := range tcs {
			out, err := o.judge.RunOne(ctx, subm.Code, subm.Language, toJudgeCase(tc))
			JudgeCallsTotal.WithLabelValues(string(o.mode)).Inc()
			if err != nil {
				return verdict.Verdict{}, err
			}
			report.TestsRun++
			if agg.Add(out) {
				break
			}
		}
	}
	return agg.Verdict()
}

func (o *Orchestrator) notify(ctx context.Context, subm submstore.Submission, report *CycleReport) {
	if o.stats == nil {
		return
	}
	err := o.stats.NotifyAccepted(ctx, subm.UserID, subm.ProblemID)
	if err != nil {
		StatsNotificationsTotal.WithLabelValues("failed").Inc()
		logger.FromContext(ctx).Warn("failed to notify statistics",
			"user_id", subm.UserID,
			"problem_id", subm.ProblemID,
			"error", err)
		return
	}
	StatsNotificationsTotal.WithLabelValues("sent").Inc()
	report.Notified = true
}

func toJudgeCase(tc problemstore.TestCase) judge0.TestCase {
	return judge0.TestCase{
		Stdin:          tc.Input,
		ExpectedOutput: tc.Output,
	}
}

func toJudgeCases(tcs []problemstore.TestCase) []judge0.TestCase {
	res := make([]judge0.TestCase, len(tcs))
	for i, tc := range tcs {
		res[i] = toJudgeCase(tc)
	}
	return res
}
