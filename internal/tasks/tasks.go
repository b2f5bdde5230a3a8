package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/config"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/services"
)

// Background task types.
const (
	TypeExpirySweep = "negotiation:sweep_expired"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                 *config.Config
	offerService        services.IOfferService
	counterOfferService services.ICounterOfferService
}

func NewTaskProcessor(cfg *config.Config, offerService services.IOfferService, counterOfferService services.ICounterOfferService) *TaskProcessor {
	return &TaskProcessor{
		cfg:                 cfg,
		offerService:        offerService,
		counterOfferService: counterOfferService,
	}
}

// SetupServer configures an Asynq server with the sweep handler registered.
// The caller runs it and owns its shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Error: %v\n", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirySweep, processor.HandleExpirySweepTask)
	fmt.Println("Registered background task handlers (expiry sweep).")

	return srv, mux
}

// SetupScheduler configures the periodic enqueueing of the expiry sweep at the
// configured cadence.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	schedulerOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	scheduler := asynq.NewScheduler(schedulerOpt, &asynq.SchedulerOpts{})

	cronspec := fmt.Sprintf("@every %s", cfg.SweepInterval)
	if _, err := scheduler.Register(cronspec, asynq.NewTask(TypeExpirySweep, nil)); err != nil {
		return nil, fmt.Errorf("failed to register expiry sweep schedule: %w", err)
	}
	fmt.Printf("Expiry sweep scheduled %s.\n", cronspec)

	return scheduler, nil
}

// --- Task Handlers ---

// HandleExpirySweepTask moves every pending negotiation item whose deadline has
// passed into EXPIRED. The sweep is idempotent; running it with nothing newly
// expired changes nothing. A failure on one collection doesn't block the other.
func (p *TaskProcessor) HandleExpirySweepTask(ctx context.Context, t *asynq.Task) error {
	var firstErr error

	offersSwept, err := p.offerService.SweepExpired(ctx)
	if err != nil {
		log.Printf("Expiry sweep: offers failed: %v", err)
		firstErr = err
	}

	countersSwept, err := p.counterOfferService.SweepExpired(ctx)
	if err != nil {
		log.Printf("Expiry sweep: counter-offers failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if offersSwept > 0 || countersSwept > 0 {
		log.Printf("Expiry sweep: %d offers, %d counter-offers expired", offersSwept, countersSwept)
	}
	return firstErr
}
