// Package cron runs the post-commit effect pipeline: domain events emitted
// by the booking engine are delivered to the outbound webhook here, outside
// the store lock and outside the request path.
package cron

import (
	"context"
	"encoding/json"
	"time"

	"advisorbot/config"
	"advisorbot/services/booking"
	"advisorbot/services/notification"
	"advisorbot/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqDispatcher enqueues events onto the Redis-backed effect queue.
type AsynqDispatcher struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqDispatcher(logger *zap.Logger) *AsynqDispatcher {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisEffectsDB,
	})
	return &AsynqDispatcher{Client: client, Logger: logger}
}

// Dispatch enqueues the event. Enqueue failures are logged and dropped; the
// engine has already committed and must not be failed by an effect.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, evt booking.Event) {
	task, err := tasks.NewEffectTask(evt)
	if err != nil {
		d.Logger.Warn("Failed to build effect task", zap.Error(err))
		return
	}
	if _, err := d.Client.EnqueueContext(ctx, task); err != nil {
		d.Logger.Warn("Failed to enqueue effect", zap.String("type", string(evt.Type)), zap.Error(err))
	}
}

// DirectDispatcher delivers effects on a goroutine when no Redis queue is
// configured, so a dev box still sends its webhooks.
type DirectDispatcher struct {
	Notifier notification.NotificationService
	Logger   *zap.Logger
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, evt booking.Event) {
	go func() {
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		deliverEvent(deliverCtx, evt, d.Notifier, d.Logger)
	}()
}

// InitEffectWorker runs the asynq worker in the background.
func InitEffectWorker(notifSvc notification.NotificationService, logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisEffectsDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEffectDeliver, handleEffectTask(notifSvc, logger))

	go func() {
		logger.Info("Starting effect worker")
		if err := srv.Run(mux); err != nil {
			logger.Error("Effect worker stopped", zap.Error(err))
		}
	}()
}

func handleEffectTask(notifSvc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var evt booking.Event
		if err := json.Unmarshal(task.Payload(), &evt); err != nil {
			logger.Warn("Invalid effect payload", zap.Error(err))
			return err
		}
		return deliverEvent(ctx, evt, notifSvc, logger)
	}
}

// deliverEvent maps a domain event onto the webhook action contract.
func deliverEvent(ctx context.Context, evt booking.Event, notifSvc notification.NotificationService, logger *zap.Logger) error {
	if notifSvc == nil {
		return nil
	}

	var action notification.Action
	var payload interface{}

	switch evt.Type {
	case booking.EventSlotBooked:
		action = notification.ActionBook
		payload = map[string]string{
			"code":       evt.Code,
			"date":       evt.Date,
			"time":       evt.Time,
			"topic":      evt.Topic,
			"user_alias": evt.UserAlias,
		}
	case booking.EventSlotCanceled:
		action = notification.ActionCancel
		payload = map[string]string{
			"code": evt.Code,
			"date": evt.Date,
			"time": evt.Time,
		}
	case booking.EventWaitlistJoined:
		action = notification.ActionWaitlist
		payload = map[string]string{
			"date":        evt.Date,
			"time":        evt.Time,
			"topic":       evt.Topic,
			"user_alias":  evt.UserAlias,
			"waitlist_id": evt.WaitlistID,
		}
	default:
		logger.Warn("Unknown effect type", zap.String("type", string(evt.Type)))
		return nil
	}

	if err := notifSvc.TriggerAction(ctx, action, payload); err != nil {
		logger.Warn("Effect delivery failed", zap.String("action", string(action)), zap.Error(err))
		return err
	}
	return nil
}
