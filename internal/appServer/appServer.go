package appServer

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/uabc-events/config"
	repository "github.com/ds124wfegd/uabc-events/internal/database/postgres"
	redisrepo "github.com/ds124wfegd/uabc-events/internal/database/redis"
	"github.com/ds124wfegd/uabc-events/internal/service"
	"github.com/ds124wfegd/uabc-events/internal/transport"
	"github.com/ds124wfegd/uabc-events/internal/validation"
	"github.com/ds124wfegd/uabc-events/internal/wizard"
	"github.com/ds124wfegd/uabc-events/internal/worker"
	"github.com/ds124wfegd/uabc-events/internal/workflow"

	"github.com/ds124wfegd/uabc-events/pkg/kafka"
	"github.com/ds124wfegd/uabc-events/pkg/mailer"
	"github.com/ds124wfegd/uabc-events/pkg/postgres"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/ds124wfegd/uabc-events/pkg/redis"
	"github.com/ds124wfegd/uabc-events/pkg/scheduler"
	"github.com/ds124wfegd/uabc-events/pkg/storage"
	"github.com/ds124wfegd/uabc-events/pkg/telegram"

	goredis "github.com/go-redis/redis/v8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func NewServer(cfg *config.Config) {
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Notification pipeline
	dlq := queue.NewRedisDLQHandler(redisClient, queue.DLQKey(cfg.Queue.Prefix))
	taskQueue, err := newQueue(cfg, redisClient, dlq)
	if err != nil {
		logrus.Fatalf("Failed to initialize %s queue: %v", cfg.Queue.Driver, err)
	}
	defer taskQueue.Close()
	dlq.RequeueWith(taskQueue.Publish)

	producer := newProducer(cfg)
	defer producer.Close()

	taskHandler := queue.NewTaskHandler(newMailer(cfg), newTelegramBot(cfg), cfg.Telegram.AdminChatID, producer)
	go func() {
		if err := taskQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
			logrus.Errorf("Queue subscriber error: %v", err)
		}
	}()
	logrus.WithField("driver", cfg.Queue.Driver).Info("Queue subscriber started")

	loc, err := time.LoadLocation(cfg.Workflow.Timezone)
	if err != nil {
		logrus.Fatalf("Invalid workflow timezone %q: %v", cfg.Workflow.Timezone, err)
	}
	publisher := service.NewQueueAdapter(taskQueue)
	dispatcher := service.NewDispatcher(service.NewQueueNotifier(publisher), publisher, service.NotificationSettings{
		AdminEmail:     cfg.Notifications.AdminEmail,
		CodesEmail:     cfg.Notifications.CodesEmail,
		SystemName:     cfg.Notifications.SystemName,
		LifecycleTopic: cfg.Kafka.LifecycleTopic,
		Location:       loc,
	})

	// Workflow core
	initial, err := workflow.ParseInitialState(cfg.Workflow.InitialState)
	if err != nil {
		logrus.Fatalf("Invalid workflow configuration: %v", err)
	}
	machine := workflow.NewMachine(initial)
	engine := validation.NewEngine(cfg.Workflow.MinLeadDays)
	controller, err := wizard.NewController(engine, cfg.Workflow.Timezone, time.Now)
	if err != nil {
		logrus.Fatalf("Failed to initialize wizard: %v", err)
	}

	blobs := storage.NewBlobStore(
		storage.NewFileStorage(cfg.Storage.BasePath),
		storage.NewURLSigner(cfg.Storage.SigningKey, cfg.Storage.URLTTL),
		cfg.Server.BaseURL,
	)

	handlers, err := newHandlers(cfg, db, redisClient, dlq, blobs, machine, engine, controller, dispatcher)
	if err != nil {
		logrus.Fatalf("Failed to initialize handlers: %v", err)
	}

	monitor := worker.NewDLQMonitor(dlq, cfg.Worker.DLQWarnThreshold)
	go scheduler.NewScheduler("dlq_monitor", cfg.Worker.DLQCheckInterval, monitor.Check).Start(ctx)
	logrus.Info("DLQ monitor started")

	if cfg.Server.Mode == "release" || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := transport.InitRoutes(handlers, transport.RouterConfig{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Version:        cfg.Server.AppVersion,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize routes: %v", err)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"version": cfg.Server.AppVersion,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

func newHandlers(
	cfg *config.Config,
	db *sql.DB,
	redisClient *goredis.Client,
	dlq queue.DLQHandler,
	blobs *storage.BlobStore,
	machine *workflow.Machine,
	engine *validation.Engine,
	controller *wizard.Controller,
	notify service.Notifications,
) (transport.Handlers, error) {
	eventRepo := repository.NewEventRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	fileRepo := repository.NewFileRepository(db)
	sessions := redisrepo.NewSessionRepository(redisClient, cfg.Queue.Prefix, cfg.Redis.SessionTTL)

	events := service.NewEventService(eventRepo, certRepo, fileRepo, blobs, machine, engine, notify)
	files := service.NewFileService(eventRepo, fileRepo, blobs, machine, cfg.Storage.MaxFileSize)
	review := service.NewReviewService(eventRepo, machine, engine, notify)
	certificates := service.NewCertificateService(eventRepo, certRepo, blobs, notify, service.CertificateSettings{
		MaxFileSize: cfg.Storage.MaxFileSize,
		MaxPhotos:   cfg.Storage.MaxPhotos,
		ThumbnailPx: cfg.Storage.ThumbnailPx,
	})
	wizardSvc := service.NewWizardService(sessions, controller, events, eventRepo, machine)
	failed := service.NewFailedNotificationService(dlq)

	eventHandler, err := transport.NewEventHandler(events, files, controller)
	if err != nil {
		return transport.Handlers{}, err
	}

	return transport.Handlers{
		Events:       eventHandler,
		Wizard:       transport.NewWizardHandler(wizardSvc),
		Certificates: transport.NewCertificateHandler(certificates),
		Admin:        transport.NewAdminHandler(review, failed),
		Downloads:    transport.NewDownloadHandler(blobs),
	}, nil
}

func newQueue(cfg *config.Config, client *goredis.Client, dlq queue.DLQHandler) (queue.Queue, error) {
	retry := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay)

	switch cfg.Queue.Driver {
	case "", "redis":
		qcfg := queue.DefaultRedisQueueConfig()
		qcfg.Prefix = cfg.Queue.Prefix
		qcfg.MaxRetries = cfg.Queue.MaxRetries
		qcfg.BaseDelay = cfg.Queue.BaseDelay
		return queue.NewRedisQueue(client, qcfg, retry, dlq), nil
	case "rabbitmq":
		return queue.NewRabbitQueue(queue.RabbitQueueConfig{
			URL:       cfg.RabbitMQ.URL,
			QueueName: cfg.RabbitMQ.QueueName,
		}, retry, dlq)
	case "inline":
		return queue.NewInlineQueue(retry, dlq), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

func newMailer(cfg *config.Config) queue.Mailer {
	if !cfg.Email.Enabled {
		logrus.Warn("Email disabled, messages are only logged")
		return mailer.LogMailer{}
	}
	return mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
}

func newTelegramBot(cfg *config.Config) queue.TelegramBot {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logrus.Warn("Telegram bot token not provided, admin mirror disabled")
		return nil
	}
	logrus.Info("Telegram bot initialized")
	return telegram.NewBot(cfg.Telegram.BotToken)
}

func newProducer(cfg *config.Config) kafka.Producer {
	if !cfg.Kafka.Enabled {
		return kafka.NewLogProducer()
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic)
}
