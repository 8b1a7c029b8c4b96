package judge0

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TestCase is one stdin / expected stdout pair sent to the engine.
type TestCase struct {
	Stdin          string
	ExpectedOutput string
}

type submissionReq struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
	EnableNetwork  bool   `json:"enable_network"`
}

type batchReq struct {
	Submissions []submissionReq `json:"submissions"`
}

type tokenResp struct {
	Token *string `json:"token"`
}

type batchResp struct {
	Submissions []submissionResp `json:"submissions"`
}

type submissionResp struct {
	Token  string  `json:"token"`
	Status status  `json:"status"`
	Time   seconds `json:"time"`
}

type status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

const (
	statusInQueue    = 1
	statusProcessing = 2
)

func (s status) pending() bool {
	return s.ID == statusInQueue || s.ID == statusProcessing
}

// seconds accepts the engine's "time" field, which is a decimal
// string by default but may also be a number or null.
type seconds struct {
	v *float64
}

func (s *seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		s.v = nil
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if str == "" {
			s.v = nil
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", str, err)
		}
		s.v = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	s.v = &f
	return nil
}
