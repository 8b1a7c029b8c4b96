package worker

import (
	"github.com/programme-lv/judgeworker/conf"
	"github.com/programme-lv/judgeworker/judge0"
	"github.com/programme-lv/judgeworker/problemstore"
	"github.com/programme-lv/judgeworker/s3bucket"
	"github.com/programme-lv/judgeworker/sqsqueue"
	"github.com/programme-lv/judgeworker/statsnotif"
	"github.com/programme-lv/judgeworker/submstore"
)

// Assemble wires an orchestrator to the services named in cfg.
func Assemble(cfg *conf.Config, clients *conf.Clients) *Orchestrator {
	queue := sqsqueue.NewSqsQueue(clients.Sqs, cfg.SqsQueueURL, cfg.QueueLease, cfg.QueueWait)
	subms := submstore.NewDynamoDbSubmTable(clients.Dynamo, cfg.SubmissionTable)

	var files problemstore.Downloader
	if cfg.TestcaseBucket != "" {
		files = s3bucket.NewS3Bucket(clients.S3, cfg.TestcaseBucket)
	}
	problems := problemstore.NewDynamoDbProblemTable(clients.DynamoDb, cfg.ProblemTable, files)

	judge := judge0.NewClient(judge0.Config{
		BaseURL:         cfg.JudgeHostURL,
		AuthToken:       cfg.JudgeAuthToken,
		LanguageIDs:     cfg.JudgeLanguages,
		RequestTimeout:  cfg.JudgeRequestTimeout,
		PollInterval:    cfg.BatchPollInterval,
		MaxPollAttempts: cfg.BatchMaxAttempts,
	}, nil)

	var stats StatsNotifier
	if cfg.StatsURL != "" {
		stats = statsnotif.NewHttpNotifier(cfg.StatsURL, cfg.StatsTimeout)
	}

	return NewOrchestrator(queue, subms, problems, judge, stats, DispatchMode(cfg.DispatchMode))
}
