package submstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/guregu/dynamo/v2"
	"github.com/programme-lv/judgeworker/srvcerror"
	"github.com/programme-lv/judgeworker/submstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSubmTable creates a fresh table in a dynamodb-local instance
// pointed to by DYNAMODB_TEST_ENDPOINT, e.g. http://localhost:8000.
func newTestSubmTable(t *testing.T) *submstore.DynamoDbSubmTable {
	t.Helper()
	endpoint := os.Getenv("DYNAMODB_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("DYNAMODB_TEST_ENDPOINT not set")
	}
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("eu-central-1"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		),
	)
	require.NoError(t, err)

	db := dynamo.New(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	tableName := "submissions-" + uuid.NewString()
	err = db.CreateTable(tableName, submstore.SubmissionRow{}).OnDemand(true).Run(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Table(tableName).DeleteTable().Run(context.Background())
	})

	return submstore.NewDynamoDbSubmTable(db, tableName)
}

func TestGetByIDNotFound(t *testing.T) {
	table := newTestSubmTable(t)

	_, err := table.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, submstore.ErrCodeNotFound))
}

func TestMarkJudgedOnlyOnce(t *testing.T) {
	table := newTestSubmTable(t)
	ctx := context.Background()

	err := table.Save(ctx, &submstore.SubmissionRow{
		ID:        "ab12-cd34",
		Code:      "print(sum(map(int, input().split())))",
		Language:  "python",
		ProblemID: "p1",
		UserID:    "u1",
		Status:    false,
	})
	require.NoError(t, err)

	subm, err := table.GetByID(ctx, "ab12-cd34")
	require.NoError(t, err)
	assert.False(t, subm.Judged)
	assert.Nil(t, subm.Result)
	assert.Equal(t, "python", subm.Language)

	judged, err := table.MarkJudged(ctx, "ab12-cd34", "Accepted", "0.117s")
	require.NoError(t, err)
	assert.True(t, judged.Judged)
	require.NotNil(t, judged.Result)
	require.NotNil(t, judged.Runtime)
	assert.Equal(t, "Accepted", *judged.Result)
	assert.Equal(t, "0.117s", *judged.Runtime)
	assert.Equal(t, "u1", judged.UserID)

	_, err = table.MarkJudged(ctx, "ab12-cd34", "Wrong Answer", "0.200s")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, submstore.ErrCodeAlreadyJudged))

	subm, err = table.GetByID(ctx, "ab12-cd34")
	require.NoError(t, err)
	assert.Equal(t, "Accepted", *subm.Result)
}

func TestMarkJudgedDoesNotCreateMissingSubmission(t *testing.T) {
	table := newTestSubmTable(t)
	ctx := context.Background()

	_, err := table.MarkJudged(ctx, "ghost", "Accepted", "0.100s")
	require.Error(t, err)
	assert.True(t, srvcerror.HasCode(err, submstore.ErrCodeAlreadyJudged))

	_, err = table.GetByID(ctx, "ghost")
	assert.True(t, srvcerror.HasCode(err, submstore.ErrCodeNotFound))
}
