package worker

import (
	"time"

	"github.com/programme-lv/judgeworker/verdict"
)

type State string

const (
	StateIdle          State = "idle"
	StateLeased        State = "leased"
	StateLoaded        State = "loaded"
	StateAlreadyJudged State = "already_judged"
	StateDispatching   State = "dispatching"
	StateAggregated    State = "aggregated"
	StatePersisted     State = "persisted"
	StateAcknowledged  State = "acknowledged"
	StateFailed        State = "failed"
)

// CycleReport describes how far one cycle got.
type CycleReport struct {
	CycleID   string        `json:"cycleId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`

	State    State `json:"state"`              // last state reached
	FailedIn State `json:"failedIn,omitempty"` // set when State is failed

	MessageID    string           `json:"messageId,omitempty"`
	QueuedFor    time.Duration    `json:"queuedForNs,omitempty"` // enqueue to lease
	SubmissionID string           `json:"submissionId,omitempty"`
	Verdict      *verdict.Verdict `json:"verdict,omitempty"`
	TestsRun     int              `json:"testsRun"`
	Notified     bool             `json:"notified"`

	Error    string `json:"error,omitempty"`
	AckError string `json:"ackError,omitempty"`
}

// Counters are totals since process start.
type Counters struct {
	Cycles        int `json:"cycles"`
	Idle          int `json:"idle"`
	Judged        int `json:"judged"`
	AlreadyJudged int `json:"alreadyJudged"`
	Failed        int `json:"failed"`
}

type Status struct {
	LastCycle *CycleReport `json:"lastCycle"` // last cycle that leased a message
	Counters  Counters     `json:"counters"`
}

func (o *Orchestrator) record(r CycleReport) {
	CyclesTotal.WithLabelValues(string(r.State)).Inc()
	if r.State != StateIdle {
		CycleDuration.WithLabelValues(string(r.State)).Observe(r.Duration.Seconds())
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.counters.Cycles++
	switch r.State {
	case StateIdle:
		o.counters.Idle++
		return
	case StatePersisted, StateAcknowledged:
		o.counters.Judged++
	case StateAlreadyJudged:
		o.counters.AlreadyJudged++
	case StateFailed:
		o.counters.Failed++
	}
	o.last = &r
}

// Status is a snapshot for the ops server.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{Counters: o.counters}
	if o.last != nil {
		last := *o.last
		st.LastCycle = &last
	}
	return st
}
