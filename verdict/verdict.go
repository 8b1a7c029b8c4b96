// Package verdict reduces ordered per-test judge outcomes into the
// single result and runtime stored on a submission.
package verdict

import (
	"fmt"
	"net/http"

	"github.com/programme-lv/judgeworker/srvcerror"
)

const Accepted = "Accepted"

// Outcome of one dispatched test case.
type Outcome struct {
	Description string   // engine status description, e.g. "Wrong Answer"
	TimeSecs    *float64 // elapsed time, nil if the engine reported none
}

// Verdict is what gets written back to the submission record.
type Verdict struct {
	Result  string `json:"result"`
	Runtime string `json:"runtime"`
}

func (v Verdict) IsAccepted() bool {
	return v.Result == Accepted
}

// Aggregator accumulates outcomes in dispatch order and stops at the
// first one that is not accepted.
type Aggregator struct {
	count     int
	totalSecs float64
	failed    *Verdict
}

// Add records the next outcome. It returns true once the verdict is
// decided and further outcomes would be ignored.
func (a *Aggregator) Add(o Outcome) (done bool) {
	if a.failed != nil {
		return true
	}
	secs := o.secs()
	a.count++
	a.totalSecs += secs
	if o.Description != Accepted {
		a.failed = &Verdict{
			Result:  o.Description,
			Runtime: FormatRuntime(secs),
		}
		return true
	}
	return false
}

func (a *Aggregator) Verdict() (Verdict, error) {
	if a.failed != nil {
		return *a.failed, nil
	}
	if a.count == 0 {
		return Verdict{}, ErrNoTestCases()
	}
	return Verdict{
		Result:  Accepted,
		Runtime: FormatRuntime(a.totalSecs / float64(a.count)),
	}, nil
}

// Aggregate is the one-shot form of Aggregator.
func Aggregate(outcomes []Outcome) (Verdict, error) {
	var agg Aggregator
	for _, o := range outcomes {
		if agg.Add(o) {
			break
		}
	}
	return agg.Verdict()
}

// FormatRuntime renders seconds with millisecond precision, e.g. "0.200s".
func FormatRuntime(secs float64) string {
	return fmt.Sprintf("%.3fs", secs)
}

func (o Outcome) secs() float64 {
	if o.TimeSecs == nil {
		return 0
	}
	return *o.TimeSecs
}

const ErrCodeNoTestCases = "no_test_cases"

func ErrNoTestCases() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeNoTestCases,
		"problem has no hidden test cases",
	).SetHttpStatusCode(http.StatusUnprocessableEntity)
}
