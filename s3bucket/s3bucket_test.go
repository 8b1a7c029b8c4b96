package s3bucket

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	content, ok := f.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content))}, nil
}

func TestDownload(t *testing.T) {
	bucket := NewS3Bucket(&fakeS3{objects: map[string]string{
		"tests/p1/01.in": "5\n1 2 3 4 5\n",
	}}, "tests")

	content, err := bucket.Download(context.Background(), "p1/01.in")
	require.NoError(t, err)
	assert.Equal(t, "5\n1 2 3 4 5\n", string(content))

	_, err = bucket.Download(context.Background(), "p1/02.in")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchKey))
}
