package problemstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/programme-lv/judgeworker/s3bucket"
	"github.com/programme-lv/judgeworker/srvcerror"
)

// TestCase is an input / expected output pair of a problem.
type TestCase struct {
	Input    string
	Output   string
	IsSample bool
}

// testcaseRow is one element of the problem item's "testcases" list.
// Large files are kept in S3 and referenced by key instead of inlined.
type testcaseRow struct {
	Input     string  `dynamodbav:"input"`
	Output    string  `dynamodbav:"output"`
	IsSample  bool    `dynamodbav:"isSample"`
	InputKey  *string `dynamodbav:"inputKey"`
	OutputKey *string `dynamodbav:"outputKey"`
}

type problemRow struct {
	Testcases []testcaseRow `dynamodbav:"testcases"`
}

type ItemGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Downloader fetches offloaded test file contents.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type DynamoDbProblemTable struct {
	logger    *slog.Logger
	ddbClient ItemGetter
	tableName string
	files     Downloader // nil when no test file bucket is configured
}

func NewDynamoDbProblemTable(ddbClient ItemGetter, tableName string, files Downloader) *DynamoDbProblemTable {
	return &DynamoDbProblemTable{
		logger:    slog.Default().With("module", "problemstore"),
		ddbClient: ddbClient,
		tableName: tableName,
		files:     files,
	}
}

// GetHiddenTestCases returns the non-sample test cases of a problem in
// the order they are stored.
func (p *DynamoDbProblemTable) GetHiddenTestCases(ctx context.Context, problemID string) ([]TestCase, error) {
	proj := expression.NamesList(expression.Name("testcases"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build projection expression: %w", err)
	}

	out, err := p.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: problemID},
		},
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get problem %s: %w", problemID, err)
	}
	if out.Item == nil {
		return nil, ErrProblemNotFound(problemID)
	}

	var row problemRow
	err = attributevalue.UnmarshalMap(out.Item, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal problem %s: %w", problemID, err)
	}

	hidden := make([]TestCase, 0, len(row.Testcases))
	for i, tc := range row.Testcases {
		if tc.IsSample {
			continue
		}
		input, err := p.resolve(ctx, tc.Input, tc.InputKey)
		if err != nil {
			return nil, fmt.Errorf("test case %d input: %w", i+1, err)
		}
		output, err := p.resolve(ctx, tc.Output, tc.OutputKey)
		if err != nil {
			return nil, fmt.Errorf("test case %d output: %w", i+1, err)
		}
		hidden = append(hidden, TestCase{
			Input:    input,
			Output:   output,
			IsSample: false,
		})
	}

	p.logger.Debug("loaded test cases",
		"problem_id", problemID,
		"total", len(row.Testcases),
		"hidden", len(hidden))
	return hidden, nil
}

func (p *DynamoDbProblemTable) resolve(ctx context.Context, inline string, key *string) (string, error) {
	if key == nil || *key == "" {
		return inline, nil
	}
	if p.files == nil {
		return "", fmt.Errorf("file %s is offloaded but no test file bucket is configured", *key)
	}
	content, err := p.files.Download(ctx, *key)
	if err != nil {
		if errors.Is(err, s3bucket.ErrNoSuchKey) {
			return "", ErrTestFileNotFound(*key).SetDebug(err)
		}
		return "", err
	}
	return string(content), nil
}

const ErrCodeNotFound = "not_found"

func ErrProblemNotFound(problemID string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeNotFound,
		fmt.Sprintf("problem %s not found", problemID),
	).SetHttpStatusCode(http.StatusNotFound)
}

func ErrTestFileNotFound(key string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeNotFound,
		fmt.Sprintf("test file %s not found", key),
	).SetHttpStatusCode(http.StatusNotFound)
}
