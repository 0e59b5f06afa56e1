package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobTypeEmail = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. Returning an error wrapped with
// Permanent sends the job straight to the DLQ; any other error is retried.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// ErrPermanent marks failures that retrying cannot fix (bad payload, no recipient).
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the pool does not retry it.
func Permanent(err error) error {
	return errors.Join(ErrPermanent, err)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, JobTypeEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{ID: uuid.NewString(), Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// PoolConfig holds the worker pool's dependencies.
type PoolConfig struct {
	RDB         *redis.Client
	Workers     int
	MaxAttempts int
	// Handlers maps each queue to the handler that consumes it.
	Handlers map[string]Handler
}

// StartWorkerPool launches cfg.Workers goroutines consuming every configured queue.
// Each goroutine blocks on BRPOP so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, cfg PoolConfig) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	queues := make([]string, 0, len(cfg.Handlers))
	for q := range cfg.Handlers {
		queues = append(queues, q)
	}
	for i := 0; i < cfg.Workers; i++ {
		go runWorker(ctx, cfg, queues, i)
	}
	log.Info().Int("workers", cfg.Workers).Strs("queues", queues).Msg("worker pool started")
}

func runWorker(ctx context.Context, cfg PoolConfig, queues []string, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := cfg.RDB.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, cfg, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, cfg PoolConfig, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, cfg.RDB, queue, Job{Type: "desconocido", Payload: quoted}, "json invalido: "+err.Error())
		return
	}
	h, ok := cfg.Handlers[queue]
	if !ok {
		SendToDLQ(ctx, cfg.RDB, queue, job, "sin handler para la cola")
		return
	}

	err := h.Process(ctx, job.Payload)
	job.Attempts++
	accion, espera := decidir(job.Attempts, cfg.MaxAttempts, err)
	switch accion {
	case accionHecha:
		log.Debug().Str("queue", queue).Str("job_id", job.ID).Msg("job processed")
	case accionReintentar:
		log.Warn().Err(err).Str("queue", queue).Str("job_id", job.ID).Int("attempts", job.Attempts).Dur("retry_in", espera).Msg("job failed, retry scheduled")
		if serr := ScheduleRetry(ctx, cfg.RDB, queue, job, espera); serr != nil {
			log.Error().Err(serr).Str("job_id", job.ID).Msg("could not schedule retry")
			SendToDLQ(ctx, cfg.RDB, queue, job, err.Error())
		}
	case accionDLQ:
		SendToDLQ(ctx, cfg.RDB, queue, job, err.Error())
	}
}

type accion int

const (
	accionHecha accion = iota
	accionReintentar
	accionDLQ
)

// decidir picks what happens to a job after an attempt. Retries back off
// exponentially from 30s.
func decidir(intentos, maxIntentos int, err error) (accion, time.Duration) {
	if err == nil {
		return accionHecha, 0
	}
	if errors.Is(err, ErrPermanent) || intentos >= maxIntentos {
		return accionDLQ, 0
	}
	return accionReintentar, 30 * time.Second << (intentos - 1)
}
