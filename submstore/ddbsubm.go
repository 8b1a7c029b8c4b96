package submstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/guregu/dynamo/v2"
	"github.com/programme-lv/judgeworker/srvcerror"
)

// Submission is a user's code submission for a problem.
type Submission struct {
	ID        string
	Code      string
	Language  string
	ProblemID string
	UserID    string
	Judged    bool    // "status" attribute; true once a verdict is stored
	Result    *string // e.g. "Accepted", "Wrong Answer"
	Runtime   *string // e.g. "0.117s"
}

// SubmissionRow is the DynamoDB representation of a submission.
type SubmissionRow struct {
	ID        string  `dynamo:"id,hash"`
	Code      string  `dynamo:"code"`
	Language  string  `dynamo:"language"`
	ProblemID string  `dynamo:"problemId"`
	UserID    string  `dynamo:"userId"`
	Status    bool    `dynamo:"status"`
	Result    *string `dynamo:"result"`
	Runtime   *string `dynamo:"runtime"`
}

func (r *SubmissionRow) toSubmission() Submission {
	return Submission{
		ID:        r.ID,
		Code:      r.Code,
		Language:  r.Language,
		ProblemID: r.ProblemID,
		UserID:    r.UserID,
		Judged:    r.Status,
		Result:    r.Result,
		Runtime:   r.Runtime,
	}
}

// DynamoDbSubmTable reads and finalizes submission records.
type DynamoDbSubmTable struct {
	submTable dynamo.Table
}

func NewDynamoDbSubmTable(db *dynamo.DB, tableName string) *DynamoDbSubmTable {
	return &DynamoDbSubmTable{
		submTable: db.Table(tableName),
	}
}

func (ddb *DynamoDbSubmTable) GetByID(ctx context.Context, id string) (Submission, error) {
	row := new(SubmissionRow)
	err := ddb.submTable.Get("id", id).One(ctx, row)
	if err != nil {
		if errors.Is(err, dynamo.ErrNotFound) {
			return Submission{}, ErrSubmissionNotFound(id)
		}
		return Submission{}, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return row.toSubmission(), nil
}

// MarkJudged stores the verdict and flips status to true in a single
// conditional update. The update only applies to an existing submission
// that has not been judged yet.
func (ddb *DynamoDbSubmTable) MarkJudged(ctx context.Context, id string, result string, runtime string) (Submission, error) {
	row := new(SubmissionRow)
	err := ddb.submTable.Update("id", id).
		Set("status", true).
		Set("result", result).
		Set("runtime", runtime).
		If("attribute_exists('id')").
		If("(attribute_not_exists('status') OR 'status' = ?)", false).
		Value(ctx, row)
	if err != nil {
		if dynamo.IsCondCheckFailed(err) {
			return Submission{}, ErrAlreadyJudged(id).SetDebug(err)
		}
		return Submission{}, ErrStoreWriteFailed(id).SetDebug(err)
	}
	return row.toSubmission(), nil
}

// Save writes a full submission row. Used by tooling and tests to seed
// submissions; the worker itself only calls MarkJudged.
func (ddb *DynamoDbSubmTable) Save(ctx context.Context, row *SubmissionRow) error {
	return ddb.submTable.Put(row).Run(ctx)
}

const ErrCodeNotFound = "not_found"

func ErrSubmissionNotFound(id string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeNotFound,
		fmt.Sprintf("submission %s not found", id),
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeAlreadyJudged = "already_judged"

func ErrAlreadyJudged(id string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeAlreadyJudged,
		fmt.Sprintf("submission %s is missing or already judged", id),
	).SetHttpStatusCode(http.StatusConflict)
}

const ErrCodeStoreWriteFailed = "store_write_failed"

func ErrStoreWriteFailed(id string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeStoreWriteFailed,
		fmt.Sprintf("failed to store verdict of submission %s", id),
	)
}
