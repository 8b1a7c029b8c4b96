package problemstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/programme-lv/judgeworker/problemstore"
	"github.com/programme-lv/judgeworker/s3bucket"
	"github.com/programme-lv/judgeworker/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProblemTable struct {
	items map[string]map[string]types.AttributeValue
	last  *dynamodb.GetItemInput
}

func (f *fakeProblemTable) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.last = params
	id := params.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

type fakeFiles map[string]string

func (f fakeFiles) Download(ctx context.Context, key string) ([]byte, error) {
	content, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("tests/%s: %w", key, s3bucket.ErrNoSuchKey)
	}
	return []byte(content), nil
}

func mustItem(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

type tcItem struct {
	Input     string  `dynamodbav:"input"`
	Output    string  `dynamodbav:"output"`
	IsSample  bool    `dynamodbav:"isSample"`
	InputKey  *string `dynamodbav:"inputKey,omitempty"`
	OutputKey *string `dynamodbav:"outputKey,omitempty"`
}

type problemItem struct {
	ID        string   `dynamodbav:"id"`
	Title     string   `dynamodbav:"title"`
	Testcases []tcItem `dynamodbav:"testcases"`
}

func strPtr(s string) *string {
	return &s
}

func TestGetHiddenTestCasesExcludesSamplesAndKeepsOrder(t *testing.T) {
	table := &fakeProblemTable{items: map[string]map[string]types.AttributeValue{
		"p1": mustItem(t, problemItem{
			ID:    "p1",
			Title: "A+B",
			Testcases: []tcItem{
				{Input: "1 1", Output: "2", IsSample: true},
				{Input: "2 3", Output: "5"},
				{Input: "10 -4", Output: "6"},
				{Input: "0 0", Output: "0", IsSample: true},
			},
		}),
	}}
	store := problemstore.NewDynamoDbProblemTable(table, "problems", nil)

	tcs, err := store.GetHiddenTestCases(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []problemstore.TestCase{
		{Input: "2 3", Output: "5"},
		{Input: "10 -4", Output: "6"},
	}, tcs)

	require.NotNil(t, table.last)
	assert.Equal(t, "problems", *table.last.TableName)
	require.NotNil(t, table.last.ProjectionExpression)
	assert.Contains(t, table.last.ExpressionAttributeNames, *table.last.ProjectionExpression)
	assert.Equal(t, "testcases", table.last.ExpressionAttributeNames[*table.last.ProjectionExpression])
}

func TestGetHiddenTestCasesMissingProblem(t *testing.T) {
	store := problemstore.NewDynamoDbProblemTable(&fakeProblemTable{}, "problems", nil)

	_, err := store.GetHiddenTestCases(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, problemstore.ErrCodeNotFound))
}

func TestGetHiddenTestCasesOnlySamples(t *testing.T) {
	table := &fakeProblemTable{items: map[string]map[string]types.AttributeValue{
		"p2": mustItem(t, problemItem{ID: "p2", Testcases: []tcItem{
			{Input: "1", Output: "1", IsSample: true},
		}}),
	}}
	store := problemstore.NewDynamoDbProblemTable(table, "problems", nil)

	tcs, err := store.GetHiddenTestCases(context.Background(), "p2")
	require.NoError(t, err)
	assert.Empty(t, tcs)
}

func TestGetHiddenTestCasesResolvesOffloadedFiles(t *testing.T) {
	table := &fakeProblemTable{items: map[string]map[string]types.AttributeValue{
		"p3": mustItem(t, problemItem{ID: "p3", Testcases: []tcItem{
			{InputKey: strPtr("p3/01.in"), OutputKey: strPtr("p3/01.ans")},
			{Input: "small", OutputKey: strPtr("p3/02.ans")},
		}}),
	}}
	files := fakeFiles{
		"p3/01.in":  "big input",
		"p3/01.ans": "big answer",
	}
	store := problemstore.NewDynamoDbProblemTable(table, "problems", files)

	_, err := store.GetHiddenTestCases(context.Background(), "p3")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, problemstore.ErrCodeNotFound))
	assert.Contains(t, err.Error(), "test case 2 output")

	files["p3/02.ans"] = "small answer"
	tcs, err := store.GetHiddenTestCases(context.Background(), "p3")
	require.NoError(t, err)
	assert.Equal(t, []problemstore.TestCase{
		{Input: "big input", Output: "big answer"},
		{Input: "small", Output: "small answer"},
	}, tcs)
}

func TestGetHiddenTestCasesOffloadedWithoutBucket(t *testing.T) {
	table := &fakeProblemTable{items: map[string]map[string]types.AttributeValue{
		"p4": mustItem(t, problemItem{ID: "p4", Testcases: []tcItem{
			{InputKey: strPtr("p4/01.in"), Output: "1"},
		}}),
	}}
	store := problemstore.NewDynamoDbProblemTable(table, "problems", nil)

	_, err := store.GetHiddenTestCases(context.Background(), "p4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no test file bucket")
}
