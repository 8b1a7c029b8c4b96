// Package sqsqueue leases and acknowledges judge requests on an SQS queue.
package sqsqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is a leased judge request.
type Message struct {
	ID     string
	Handle string // receipt handle for acknowledgment / delete
	Body   string
	SentAt time.Time

	// Ref is nil when the body could not be decoded; ParseErr says why.
	Ref      *SubmissionRef
	ParseErr error
}

type SqsQueue struct {
	logger   *slog.Logger
	client   sqsAPI
	queueUrl string
	lease    time.Duration // visibility timeout of a received message
	wait     time.Duration // long polling wait
}

func NewSqsQueue(client sqsAPI, queueUrl string, lease time.Duration, wait time.Duration) *SqsQueue {
	return &SqsQueue{
		logger:   slog.Default().With("module", "sqsqueue"),
		client:   client,
		queueUrl: queueUrl,
		lease:    lease,
		wait:     wait,
	}
}

// ReceiveOne leases at most one message. It returns nil, nil when the
// queue is empty. A message whose body cannot be decoded is still
// returned, with ParseErr set, so the caller can log it.
func (q *SqsQueue) ReceiveOne(ctx context.Context) (*Message, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueUrl),
		MaxNumberOfMessages: 1,
		VisibilityTimeout:   int32(q.lease.Seconds()),
		WaitTimeSeconds:     int32(q.wait.Seconds()),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameSentTimestamp,
		},
	})
	if err != nil {
		return nil, ErrQueueOperationFailed("receive").SetDebug(err)
	}
	if len(output.Messages) == 0 {
		return nil, nil
	}
	if len(output.Messages) > 1 {
		q.logger.Warn("received more messages than requested", "count", len(output.Messages))
	}

	raw := output.Messages[0]
	if raw.ReceiptHandle == nil {
		return nil, ErrQueueOperationFailed("receive").SetDebug(fmt.Errorf("receipt handle is nil"))
	}
	msg := &Message{
		ID:     aws.ToString(raw.MessageId),
		Handle: *raw.ReceiptHandle,
		Body:   aws.ToString(raw.Body),
		SentAt: sentAt(raw.Attributes),
	}
	ref, err := DecodeBody(msg.Body)
	if err != nil {
		msg.ParseErr = err
	} else {
		msg.Ref = &ref
	}
	return msg, nil
}

// Delete permanently removes a leased message.
func (q *SqsQueue) Delete(ctx context.Context, handle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueUrl),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return ErrQueueOperationFailed("delete").SetDebug(err)
	}
	return nil
}

// Send enqueues a judge request and returns the SQS message id.
func (q *SqsQueue) Send(ctx context.Context, ref SubmissionRef, compress bool) (string, error) {
	body, err := EncodeBody(ref, compress)
	if err != nil {
		return "", err
	}
	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueUrl),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return "", ErrQueueOperationFailed("send").SetDebug(err)
	}
	return aws.ToString(out.MessageId), nil
}

func sentAt(attrs map[string]string) time.Time {
	raw, ok := attrs[string(types.MessageSystemAttributeNameSentTimestamp)]
	if !ok {
		return time.Time{}
	}
	var millis int64
	if _, err := fmt.Sscan(raw, &millis); err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
