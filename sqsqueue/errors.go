package sqsqueue

import (
	"net/http"

	"github.com/programme-lv/judgeworker/srvcerror"
)

const ErrCodeQueueOperationFailed = "queue_operation_failed"

func ErrQueueOperationFailed(op string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeQueueOperationFailed,
		"sqs "+op+" failed",
	).SetHttpStatusCode(http.StatusBadGateway)
}

const ErrCodeMalformedMessage = "malformed_message"

func ErrMalformedMessage(reason string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeMalformedMessage,
		"malformed judge request: "+reason,
	).SetHttpStatusCode(http.StatusBadRequest)
}
