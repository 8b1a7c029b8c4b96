// Package statsnotif tells the statistics service about accepted
// submissions.
package statsnotif

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/programme-lv/judgeworker/srvcerror"
)

type statsReq struct {
	UserID    string `json:"userId"`
	ProblemID string `json:"problemId"`
}

type HttpNotifier struct {
	httpClient *http.Client
	endpoint   string
}

// NewHttpNotifier posts to {baseURL}/statistics. Every call is bounded
// by timeout.
func NewHttpNotifier(baseURL string, timeout time.Duration) *HttpNotifier {
	return &HttpNotifier{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(baseURL, "/") + "/statistics",
	}
}

func (n *HttpNotifier) NotifyAccepted(ctx context.Context, userID string, problemID string) error {
	body, err := json.Marshal(statsReq{UserID: userID, ProblemID: problemID})
	if err != nil {
		return fmt.Errorf("failed to marshal stats request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build stats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return ErrStatsNotifyFailed().SetDebug(err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return ErrStatsNotifyFailed().SetDebug(fmt.Errorf("status %d", res.StatusCode))
	}
	return nil
}

const ErrCodeStatsNotifyFailed = "stats_notify_failed"

func ErrStatsNotifyFailed() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeStatsNotifyFailed,
		"failed to notify statistics service",
	).SetHttpStatusCode(http.StatusBadGateway)
}
