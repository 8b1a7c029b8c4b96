// Package conf builds the worker configuration once at startup from the
// environment, an optional .env file and AWS SSM Parameter Store.
package conf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AwsRegion string
	SsmPath   string
	AppEnv    string

	SqsQueueURL     string
	SubmissionTable string
	ProblemTable    string
	TestcaseBucket  string // optional, holds offloaded test files

	JudgeHostURL        string
	JudgeAuthToken      string
	JudgeLanguages      map[string]int
	DispatchMode        string // "sequential" or "batch"
	BatchMaxAttempts    int
	BatchPollInterval   time.Duration
	JudgeRequestTimeout time.Duration

	PollInterval time.Duration
	QueueLease   time.Duration
	QueueWait    time.Duration

	StatsURL     string // empty disables stats notifications
	StatsTimeout time.Duration

	OpsAddr           string // empty disables the ops server
	OpsAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

const (
	DispatchSequential = "sequential"
	DispatchBatch      = "batch"
)

// judge0's default port when only a host name is configured
const defaultJudgePort = "2358"

// source resolves a key, preferring parameter store values.
type source struct {
	params map[string]string
	errs   []error
}

func (s *source) str(key string, fallbacks ...string) string {
	for _, k := range append([]string{key}, fallbacks...) {
		if v, ok := s.params[k]; ok && v != "" {
			return v
		}
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (s *source) strOr(key string, def string) string {
	if v := s.str(key); v != "" {
		return v
	}
	return def
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	raw := s.str(key)
	if raw == "" {
		return def
	}
	// bare numbers are seconds
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}

func (s *source) integer(key string, def int) int {
	raw := s.str(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (s *source) list(key string) []string {
	var res []string
	for _, item := range strings.Split(s.str(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}

func build(params map[string]string) (*Config, error) {
	src := &source{params: params}

	cfg := &Config{
		AwsRegion: src.str("AWS_REGION", "REGION"),
		SsmPath:   os.Getenv("SSM_PATH"),
		AppEnv:    appEnv(),

		SqsQueueURL:     src.str("SQS_QUEUE_URL"),
		SubmissionTable: src.str("DYNAMODB_SUBMISSION_TABLE_NAME"),
		ProblemTable:    src.str("DYNAMODB_PROBLEM_TABLE_NAME"),
		TestcaseBucket:  src.str("TESTCASE_S3_BUCKET"),

		JudgeHostURL:        judgeHostURL(src),
		JudgeAuthToken:      src.str("JUDGE_AUTH_TOKEN"),
		DispatchMode:        src.strOr("JUDGE_DISPATCH_MODE", DispatchSequential),
		BatchMaxAttempts:    src.integer("JUDGE_BATCH_MAX_ATTEMPTS", 5),
		BatchPollInterval:   src.duration("JUDGE_BATCH_POLL_INTERVAL", 3*time.Second),
		JudgeRequestTimeout: src.duration("JUDGE_REQUEST_TIMEOUT", 15*time.Second),

		PollInterval: src.duration("POLL_INTERVAL", 3*time.Second),
		QueueLease:   src.duration("QUEUE_LEASE_DURATION", 20*time.Second),
		QueueWait:    src.duration("QUEUE_WAIT_TIME", time.Second),

		StatsURL:     src.str("STATS_URL"),
		StatsTimeout: src.duration("STATS_TIMEOUT", 5*time.Second),

		OpsAddr:           opsAddr(src),
		OpsAllowedOrigins: src.list("OPS_ALLOWED_ORIGINS"),

		LogLevel:  src.strOr("LOG_LEVEL", "info"),
		LogFormat: src.strOr("LOG_FORMAT", "text"),
	}

	langs, err := loadLanguages(src.str("JUDGE_LANGUAGES"), src.str("JUDGE_LANGUAGES_FILE"))
	if err != nil {
		src.errs = append(src.errs, err)
	}
	cfg.JudgeLanguages = langs

	if len(src.errs) > 0 {
		return nil, errors.Join(src.errs...)
	}
	return cfg, nil
}

func appEnv() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return v
	}
	return os.Getenv("NODE_ENV")
}

// JUDGE_HOST_URL wins over a bare EC2_JUDGE_HOST_DNS_NAME host name.
func judgeHostURL(src *source) string {
	if u := src.str("JUDGE_HOST_URL"); u != "" {
		return u
	}
	host := src.str("EC2_JUDGE_HOST_DNS_NAME")
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host + ":" + defaultJudgePort
}

// OPS_ADDR may be set to an empty value to disable the ops server.
func opsAddr(src *source) string {
	if v, ok := src.params["OPS_ADDR"]; ok {
		return v
	}
	if v, ok := os.LookupEnv("OPS_ADDR"); ok {
		return v
	}
	return ":8081"
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ key, val string }{
		{"SQS_QUEUE_URL", c.SqsQueueURL},
		{"DYNAMODB_SUBMISSION_TABLE_NAME", c.SubmissionTable},
		{"DYNAMODB_PROBLEM_TABLE_NAME", c.ProblemTable},
		{"JUDGE_HOST_URL", c.JudgeHostURL},
	}
	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("%s is not set", r.key))
		}
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"JUDGE_BATCH_POLL_INTERVAL", c.BatchPollInterval},
		{"JUDGE_REQUEST_TIMEOUT", c.JudgeRequestTimeout},
		{"POLL_INTERVAL", c.PollInterval},
		{"QUEUE_LEASE_DURATION", c.QueueLease},
		{"STATS_TIMEOUT", c.StatsTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.key, d.val))
		}
	}
	if c.QueueWait < 0 || c.QueueWait > 20*time.Second {
		errs = append(errs, fmt.Errorf("QUEUE_WAIT_TIME must be between 0s and 20s, got %s", c.QueueWait))
	}
	if c.QueueLease < c.JudgeRequestTimeout {
		errs = append(errs, fmt.Errorf(
			"QUEUE_LEASE_DURATION (%s) is shorter than JUDGE_REQUEST_TIMEOUT (%s)",
			c.QueueLease, c.JudgeRequestTimeout))
	} else if c.DispatchMode == DispatchBatch && c.QueueLease < c.BatchBudget() {
		errs = append(errs, fmt.Errorf(
			"QUEUE_LEASE_DURATION (%s) is shorter than the batch judging budget (%s)",
			c.QueueLease, c.BatchBudget()))
	}
	if c.BatchMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("JUDGE_BATCH_MAX_ATTEMPTS must be positive, got %d", c.BatchMaxAttempts))
	}
	if c.DispatchMode != DispatchSequential && c.DispatchMode != DispatchBatch {
		errs = append(errs, fmt.Errorf("JUDGE_DISPATCH_MODE must be %q or %q, got %q",
			DispatchSequential, DispatchBatch, c.DispatchMode))
	}
	if len(c.JudgeLanguages) == 0 {
		errs = append(errs, errors.New("judge language table is empty, set JUDGE_LANGUAGES or JUDGE_LANGUAGES_FILE"))
	}
	return errors.Join(errs...)
}

// BatchBudget is the longest a batch dispatch may take: the submit
// request plus every poll wait and poll request.
func (c *Config) BatchBudget() time.Duration {
	attempts := time.Duration(max(c.BatchMaxAttempts, 0))
	return c.JudgeRequestTimeout + attempts*(c.BatchPollInterval+c.JudgeRequestTimeout)
}

type Entry struct {
	Key   string
	Value string
}

// Entries lists the effective configuration with secrets masked.
func (c *Config) Entries() []Entry {
	return []Entry{
		{"AWS_REGION", c.AwsRegion},
		{"SSM_PATH", c.SsmPath},
		{"APP_ENV", c.AppEnv},
		{"SQS_QUEUE_URL", c.SqsQueueURL},
		{"DYNAMODB_SUBMISSION_TABLE_NAME", c.SubmissionTable},
		{"DYNAMODB_PROBLEM_TABLE_NAME", c.ProblemTable},
		{"TESTCASE_S3_BUCKET", c.TestcaseBucket},
		{"JUDGE_HOST_URL", c.JudgeHostURL},
		{"JUDGE_AUTH_TOKEN", mask(c.JudgeAuthToken)},
		{"JUDGE_LANGUAGES", formatLanguages(c.JudgeLanguages)},
		{"JUDGE_DISPATCH_MODE", c.DispatchMode},
		{"JUDGE_BATCH_MAX_ATTEMPTS", strconv.Itoa(c.BatchMaxAttempts)},
		{"JUDGE_BATCH_POLL_INTERVAL", c.BatchPollInterval.String()},
		{"JUDGE_REQUEST_TIMEOUT", c.JudgeRequestTimeout.String()},
		{"POLL_INTERVAL", c.PollInterval.String()},
		{"QUEUE_LEASE_DURATION", c.QueueLease.String()},
		{"QUEUE_WAIT_TIME", c.QueueWait.String()},
		{"STATS_URL", c.StatsURL},
		{"STATS_TIMEOUT", c.StatsTimeout.String()},
		{"OPS_ADDR", c.OpsAddr},
		{"OPS_ALLOWED_ORIGINS", strings.Join(c.OpsAllowedOrigins, ",")},
		{"LOG_LEVEL", c.LogLevel},
		{"LOG_FORMAT", c.LogFormat},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
