package sqsqueue

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// SubmissionRef is the payload of a judge request.
type SubmissionRef struct {
	SubmissionID string `json:"submissionId"`
}

// max decompressed envelope size, a reference is a few dozen bytes
const maxDecodedBodyLen = 64 * 1024

// DecodeBody parses a message body. Plain JSON is read as is, any other
// body is treated as base64 encoded zstd compressed JSON.
func DecodeBody(body string) (SubmissionRef, error) {
	raw := bytes.TrimSpace([]byte(body))
	if len(raw) == 0 {
		return SubmissionRef{}, ErrMalformedMessage("empty body")
	}

	if raw[0] != '{' {
		compressed, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return SubmissionRef{}, ErrMalformedMessage("body is neither json nor base64").SetDebug(err)
		}
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedBodyLen))
		if err != nil {
			return SubmissionRef{}, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()
		raw, err = decoder.DecodeAll(compressed, nil)
		if err != nil {
			return SubmissionRef{}, ErrMalformedMessage("failed to decompress body").SetDebug(err)
		}
	}

	var ref SubmissionRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return SubmissionRef{}, ErrMalformedMessage("failed to unmarshal body").SetDebug(err)
	}
	if ref.SubmissionID == "" {
		return SubmissionRef{}, ErrMalformedMessage("submissionId is missing")
	}
	return ref, nil
}

// EncodeBody marshals ref, optionally compressing it the same way
// DecodeBody expects.
func EncodeBody(ref SubmissionRef, compress bool) (string, error) {
	jsonReq, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission ref: %w", err)
	}
	if !compress {
		return string(jsonReq), nil
	}

	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer zstdEncoder.Close()

	compressed := zstdEncoder.EncodeAll(jsonReq, make([]byte, 0, len(jsonReq)))
	return base64.StdEncoding.EncodeToString(compressed), nil
}
