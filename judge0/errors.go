package judge0

import (
	"fmt"
	"net/http"

	"github.com/programme-lv/judgeworker/srvcerror"
)

const ErrCodeUnsupportedLanguage = "unsupported_language"

func ErrUnsupportedLanguage(lang string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeUnsupportedLanguage,
		fmt.Sprintf("language %q has no engine id", lang),
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeEngineUnavailable = "engine_unavailable"

func ErrEngineUnavailable() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeEngineUnavailable,
		"judging engine unreachable",
	).SetHttpStatusCode(http.StatusServiceUnavailable)
}

const ErrCodeEngineError = "engine_error"

func ErrEngineError(msg string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeEngineError,
		msg,
	).SetHttpStatusCode(http.StatusBadGateway)
}

const ErrCodeBatchUnresolved = "batch_unresolved"

func ErrBatchUnresolved(pending int, attempts int) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeBatchUnresolved,
		fmt.Sprintf("%d test cases still pending after %d polls", pending, attempts),
	).SetHttpStatusCode(http.StatusGatewayTimeout)
}
