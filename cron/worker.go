package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mindwell/config"
	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/reconciliation"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

var asynqClient *asynq.Client

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitReconcileWorker runs the async reconciliation worker in background.
func InitReconcileWorker(svc reconciliation.ReconciliationService) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(reconciliation.TypeReconcileSession, handleReconcileTask(svc))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[ReconcileWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReconcileWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReconcileWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleReconcileTask(svc reconciliation.ReconciliationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p reconciliation.ReconcilePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReconcileWorker] invalid payload: %v", err)
			return err
		}

		_, err := svc.Reconcile(ctx, p.SessionID, p.Trigger)
		if err != nil {
			log.Printf("[ReconcileWorker] reconciliation failed for %s: %v", p.SessionID, err)
		}
		return err
	}
}

// EnqueueReconcile schedules a reconciliation task, optionally delayed. Used
// after payment callbacks (with a settle delay) and on payment initiation
// (queued rather than immediate).
func EnqueueReconcile(sessionID string, trigger models.ReconcileTrigger, delay time.Duration) error {
	if asynqClient == nil {
		asynqClient = asynq.NewClient(redisOpts())
	}

	task, opts, err := reconciliation.NewReconcileTask(reconciliation.ReconcilePayload{
		SessionID: sessionID,
		Trigger:   trigger,
	}, delay)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, opts...)
	return err
}

// StartStaleSweep periodically reconciles sessions whose payment status has
// been Processing past the staleness threshold. Batch size and inter-batch
// pauses are handled by the engine's bulk mode.
func StartStaleSweep(ctx context.Context, repo sessionRepo.SessionRepository, svc reconciliation.ReconciliationService) {
	go func() {
		interval := time.Duration(config.AppConfig.StalePaymentThresholdMin) * time.Minute / 2
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Stale payment sweep shutdown signal received.")
				return
			case <-ticker.C:
				threshold := time.Now().Add(-time.Duration(config.AppConfig.StalePaymentThresholdMin) * time.Minute)
				stale, err := repo.FindStaleProcessing(threshold, 100)
				if err != nil {
					log.Printf("Stale payment query failed: %v", err)
					continue
				}
				if len(stale) == 0 {
					continue
				}

				ids := make([]string, 0, len(stale))
				for _, s := range stale {
					ids = append(ids, s.ID)
				}
				svc.ReconcileBulk(ctx, ids, models.TriggerStaleSweep)
			}
		}
	}()
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[ReconcileWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
