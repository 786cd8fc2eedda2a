package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/enrichment"
	"github.com/hirelens/ats-sync-svc/internal/logger"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/oauth"
	"github.com/hirelens/ats-sync-svc/internal/privacy"
	"github.com/hirelens/ats-sync-svc/internal/rabbitmq"
	"github.com/hirelens/ats-sync-svc/internal/store"
	"github.com/hirelens/ats-sync-svc/internal/syncer"
)

// Service holds all application dependencies.
// This eliminates global state and enables proper dependency injection.
type Service struct {
	Config *config.Config
	DB     *gorm.DB
	RMQ    *rabbitmq.Connection
	Store  store.Store

	OAuth     *oauth.Manager
	Client    *ats.Client
	Gate      *privacy.Gate
	Queue     *enrichment.Queue
	Consumer  *enrichment.Consumer
	Syncer    *syncer.Syncer
	Scheduler *syncer.Scheduler
}

// NewService wires the full dependency graph. The OAuth manager gets its
// post-connect steps here since they need the client and syncer, which
// in turn need the manager as their token source.
func NewService(cfg *config.Config, db *gorm.DB, rmq *rabbitmq.Connection) *Service {
	st := store.NewGorm(db)

	manager := oauth.NewManager(&cfg.ATS, st, logger.Component("oauth"))
	client := ats.NewClient(&cfg.ATS, manager, logger.Component("ats"))
	gate := privacy.NewGate(st.Consents(), st.Audits(), logger.Component("privacy"))
	queue := enrichment.NewQueue(rmq, st.Enrichments(), cfg.RabbitMQ.TaskQueue, logger.Component("enrichment"))
	consumer := enrichment.NewConsumer(rmq, st, cfg.RabbitMQ.ResultQueue, cfg.RabbitMQ.PrefetchCount, logger.Component("enrichment"))
	sync := syncer.New(&cfg.Sync, st, client, gate, queue, logger.Component("syncer"))
	scheduler := syncer.NewScheduler(sync, cfg.Sync.Interval, logger.Component("scheduler"))

	manager.OnConnect("webhook registration", func(ctx context.Context, tenantID uuid.UUID) error {
		_, err := client.EnsureWebhookSubscription(ctx, tenantID, cfg.ATS.WebhookCallbackURL, models.AllEventTypes())
		return err
	})
	manager.OnConnect("initial sync", func(ctx context.Context, tenantID uuid.UUID) error {
		_, err := sync.InitialSync(ctx, tenantID)
		return err
	})

	return &Service{
		Config:    cfg,
		DB:        db,
		RMQ:       rmq,
		Store:     st,
		OAuth:     manager,
		Client:    client,
		Gate:      gate,
		Queue:     queue,
		Consumer:  consumer,
		Syncer:    sync,
		Scheduler: scheduler,
	}
}
