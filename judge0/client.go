// Package judge0 talks to a Judge0-compatible code execution engine.
package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/programme-lv/judgeworker/verdict"
	"k8s.io/utils/clock"
)

const maxErrBodyLen = 512

// Config holds engine connection settings.
type Config struct {
	BaseURL   string
	AuthToken string // sent as X-Auth-Token when set

	// maps submission language names to engine language ids,
	// e.g. "cpp" -> 54. Differs between engine deployments.
	LanguageIDs map[string]int

	RequestTimeout time.Duration

	// batch mode polling
	PollInterval    time.Duration
	MaxPollAttempts int
}

type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	clock       clock.Clock
	baseURL     string
	authToken   string
	langIDs     map[string]int
	pollEvery   time.Duration
	maxAttempts int
}

func NewClient(cfg Config, clk clock.Clock) *Client {
	if clk == nil {
		clk = clock.RealClock{}
	}
	attempts := cfg.MaxPollAttempts
	if attempts <= 0 {
		attempts = 5
	}
	langs := make(map[string]int, len(cfg.LanguageIDs))
	for name, id := range cfg.LanguageIDs {
		langs[name] = id
	}
	return &Client{
		logger:      slog.Default().With("module", "judge0"),
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		clock:       clk,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		authToken:   cfg.AuthToken,
		langIDs:     langs,
		pollEvery:   cfg.PollInterval,
		maxAttempts: attempts,
	}
}

// LanguageID resolves a submission language to the engine's id.
func (c *Client) LanguageID(lang string) (int, error) {
	id, ok := c.langIDs[lang]
	if !ok {
		return 0, ErrUnsupportedLanguage(lang)
	}
	return id, nil
}

// RunOne submits a single test case and blocks until the engine
// returns its verdict.
func (c *Client) RunOne(ctx context.Context, code string, lang string, tc TestCase) (verdict.Outcome, error) {
	langID, err := c.LanguageID(lang)
	if err != nil {
		return verdict.Outcome{}, err
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")
	query.Set("wait", "true")

	var resp submissionResp
	err = c.do(ctx, http.MethodPost, "/submissions", query, newSubmissionReq(code, langID, tc), &resp)
	if err != nil {
		return verdict.Outcome{}, err
	}
	if resp.Status.pending() {
		return verdict.Outcome{}, ErrEngineError(
			fmt.Sprintf("engine returned unfinished submission %s", resp.Token))
	}
	return toOutcome(resp), nil
}

// RunBatch submits all test cases at once and polls for their results.
// Outcomes are returned in the order of tcs. If any case is still
// pending once the poll budget is spent the batch is unresolved.
func (c *Client) RunBatch(ctx context.Context, code string, lang string, tcs []TestCase) ([]verdict.Outcome, error) {
	langID, err := c.LanguageID(lang)
	if err != nil {
		return nil, err
	}
	if len(tcs) == 0 {
		return nil, nil
	}

	req := batchReq{Submissions: make([]submissionReq, len(tcs))}
	for i, tc := range tcs {
		req.Submissions[i] = newSubmissionReq(code, langID, tc)
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")

	var tokenResps []tokenResp
	err = c.do(ctx, http.MethodPost, "/submissions/batch", query, req, &tokenResps)
	if err != nil {
		return nil, err
	}
	if len(tokenResps) != len(tcs) {
		return nil, ErrEngineError(fmt.Sprintf(
			"engine returned %d tokens for %d submissions", len(tokenResps), len(tcs)))
	}
	tokens := make([]string, len(tokenResps))
	for i, tr := range tokenResps {
		if tr.Token == nil || *tr.Token == "" {
			return nil, ErrEngineError(fmt.Sprintf("engine rejected test case %d", i+1))
		}
		tokens[i] = *tr.Token
	}

	return c.pollBatch(ctx, tokens)
}

func (c *Client) pollBatch(ctx context.Context, tokens []string) ([]verdict.Outcome, error) {
	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("base64_encoded", "false")
	query.Set("fields", "token,status,time")

	pending := len(tokens)
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ErrEngineUnavailable().SetDebug(ctx.Err())
		case <-c.clock.After(c.pollEvery):
		}

		var resp batchResp
		err := c.do(ctx, http.MethodGet, "/submissions/batch", query, nil, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Submissions) != len(tokens) {
			return nil, ErrEngineError(fmt.Sprintf(
				"engine returned %d results for %d tokens", len(resp.Submissions), len(tokens)))
		}

		pending = 0
		for _, s := range resp.Submissions {
			if s.Status.pending() {
				pending++
			}
		}
		if pending == 0 {
			outcomes := make([]verdict.Outcome, len(resp.Submissions))
			for i, s := range resp.Submissions {
				outcomes[i] = toOutcome(s)
			}
			return outcomes, nil
		}
		c.logger.Debug("batch still pending",
			"attempt", attempt,
			"pending", pending,
			"total", len(tokens))
	}
	return nil, ErrBatchUnresolved(pending, c.maxAttempts)
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return ErrEngineUnavailable().SetDebug(err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return ErrEngineUnavailable().SetDebug(err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet := string(respBody)
		if len(snippet) > maxErrBodyLen {
			snippet = snippet[:maxErrBodyLen]
		}
		return ErrEngineError(fmt.Sprintf("%s %s: status %d", method, path, res.StatusCode)).
			SetDebug(fmt.Errorf("response body: %s", snippet))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return ErrEngineError(fmt.Sprintf("%s %s: undecodable response", method, path)).SetDebug(err)
	}
	return nil
}

func newSubmissionReq(code string, langID int, tc TestCase) submissionReq {
	return submissionReq{
		SourceCode:     code,
		LanguageID:     langID,
		Stdin:          tc.Stdin,
		ExpectedOutput: tc.ExpectedOutput,
		EnableNetwork:  false,
	}
}

func toOutcome(s submissionResp) verdict.Outcome {
	return verdict.Outcome{
		Description: s.Status.Description,
		TimeSecs:    s.Time.v,
	}
}
