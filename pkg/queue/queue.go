package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/pkg/config"
)

// Queue priorities. Email goes to critical so invitations are not stuck
// behind maintenance work.
var queues = map[string]int{
	"critical": 6,
	"default":  3,
	"low":      1,
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func NewServer(cfg *config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency:     concurrency,
			Queues:          queues,
			ShutdownTimeout: 10 * time.Second,
		},
	)
}

// NewScheduler runs periodic tasks such as the invite sweep. Cron specs are
// evaluated in UTC.
func NewScheduler(cfg *config.RedisConfig) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{Location: time.UTC})
}
