package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgman "NotifyFlow/internal/config"
	"NotifyFlow/internal/delivery/handlers"
	"NotifyFlow/internal/delivery/middleware"
	"NotifyFlow/internal/migrator"
	"NotifyFlow/internal/monitor"
	"NotifyFlow/internal/orchestrator"
	"NotifyFlow/internal/provider/channel"
	"NotifyFlow/internal/provider/vendor"
	"NotifyFlow/internal/renderer"
	"NotifyFlow/internal/repository/pg"
	"NotifyFlow/internal/repository/rabbit"
	"NotifyFlow/internal/service"
	"NotifyFlow/internal/worker"
	"NotifyFlow/pkg/rabbitmq"
	"NotifyFlow/pkg/retry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"
)

// Application основная структура приложения.
type Application struct {
	config  *cfgman.Config
	server  *ginext.Engine
	db      *dbpg.DB
	redis   *redis.Client
	rabbit  *rabbitmq.RabbitClient
	service *service.NotificationService
	admin   *service.QueueAdminService
}

// New создает новое приложение.
func New() (*Application, error) {
	cfg, err := cfgman.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := initLogger(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	return &Application{config: cfg}, nil
}

// Run запускает приложение в зависимости от команды.
func (a *Application) Run() error {
	if len(os.Args) < 2 {
		a.printUsage()
		return fmt.Errorf("no command specified")
	}

	command := os.Args[1]

	switch command {
	case "producer":
		return a.runProducer()
	case "orchestrator":
		return a.runOrchestrator()
	case "migrate":
		return a.runMigrate()
	case "health":
		return a.runHealthCheck()
	default:
		a.printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// printUsage печатает инструкции по использованию.
func (a *Application) printUsage() {
	fmt.Println("NotifyFlow - система асинхронной доставки уведомлений")
	fmt.Println()
	fmt.Println("Доступные команды:")
	fmt.Println("  producer     - запуск HTTP API, консьюмера квитанций и монитора очередей")
	fmt.Println("  orchestrator - запуск консьюмера запросов и диспетчеризации по каналам")
	fmt.Println("  migrate up   - накат миграций")
	fmt.Println("  migrate down - откат миграций")
	fmt.Println("  health       - проверка состояния сервисов")
	fmt.Println()
	fmt.Println("Примеры:")
	fmt.Println("  <appname> producer")
	fmt.Println("  <appname> orchestrator")
	fmt.Println("  <appname> migrate up")
	fmt.Println("  <appname> health")
}

// initLogger инициализирует логгер.
func initLogger(level string) error {
	zlog.Init()

	zerologLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	return zlog.SetLevel(zerologLevel.String())
}

// runProducer запускает продюсерский процесс: HTTP API, консьюмер
// квитанций и монитор очередей.
func (a *Application) runProducer() error {
	zlog.Logger.Info().Msg("Starting NotifyFlow producer...")

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	a.db, err = initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	a.redis, err = initRedis(a.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to init redis: %w", err)
	}
	a.rabbit, err = initRabbitMQ(a.config.RabbitMQ)
	if err != nil {
		return fmt.Errorf("failed to init rabbitmq: %w", err)
	}
	defer a.cleanup()

	pgRepo := pg.NewPostgresRepo(a.db)
	publisher := rabbit.NewRequestPublisher(
		a.rabbit,
		a.config.RabbitMQ.Request.Exchange,
		a.config.RabbitMQ.Request.RoutingKey)
	a.service = service.NewNotificationService(pgRepo, publisher, a.redis, 24*time.Hour)
	a.admin = service.NewQueueAdminService(a.rabbit, a.queueAliases())

	receiptConsumer := worker.NewReceiptConsumer(
		a.service,
		a.rabbit,
		a.config.RabbitMQ.Receipt.Queue,
		a.config.RabbitMQ.Workers,
		a.config.RabbitMQ.PrefetchCount,
		a.config.RabbitMQ.MaxRetries)
	go func() {
		if err := receiptConsumer.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("receipt consumer stopped with error")
		}
	}()

	queueMonitor, err := monitor.NewQueueMonitor(a.rabbit, a.monitoredQueues(), a.config.Monitor.Interval)
	if err != nil {
		return fmt.Errorf("failed to create queue monitor: %w", err)
	}
	if err := queueMonitor.Start(); err != nil {
		return fmt.Errorf("failed to start queue monitor: %w", err)
	}
	defer func() { _ = queueMonitor.Stop() }()

	a.setupHTTPServer()

	zlog.Logger.Info().Str("address", a.config.HTTP.GetConnectionString()).Msg("HTTP server starting")
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Run(a.config.HTTP.GetConnectionString())
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		zlog.Logger.Info().Msg("Received shutdown signal")
		return nil
	}
}

// runOrchestrator запускает оркестратора: консьюмер запросов,
// провайдеры каналов и слушатель dead-letter очереди.
func (a *Application) runOrchestrator() error {
	zlog.Logger.Info().Msg("Starting NotifyFlow orchestrator...")

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	a.rabbit, err = initRabbitMQ(a.config.RabbitMQ)
	if err != nil {
		return fmt.Errorf("failed to init rabbitmq: %w", err)
	}
	defer a.cleanup()

	tplRenderer, err := renderer.New()
	if err != nil {
		return fmt.Errorf("failed to init renderer: %w", err)
	}

	factory, err := a.buildChannelFactory(tplRenderer)
	if err != nil {
		return fmt.Errorf("failed to build channel factory: %w", err)
	}

	receipts := rabbit.NewReceiptPublisher(
		a.rabbit,
		a.config.RabbitMQ.Receipt.Exchange,
		a.config.RabbitMQ.Receipt.RoutingKey)
	orch := orchestrator.New(factory, receipts)

	requestConsumer := orchestrator.NewConsumer(
		orch,
		a.rabbit,
		a.config.RabbitMQ.Request.Queue,
		a.config.RabbitMQ.Workers,
		a.config.RabbitMQ.PrefetchCount,
		a.config.RabbitMQ.MaxRetries)
	go func() {
		if err := requestConsumer.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("request consumer stopped with error")
		}
	}()

	dlqListener := monitor.NewDLQListener(a.rabbit,
		a.config.RabbitMQ.Request.Queue+rabbitmq.DLQSuffix)
	go func() {
		if err := dlqListener.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("dlq listener stopped with error")
		}
	}()

	zlog.Logger.Info().Msg("Orchestrator started, waiting for shutdown signal...")
	<-ctx.Done()
	zlog.Logger.Info().Msg("Received shutdown signal")
	return nil
}

// buildChannelFactory собирает фабрику провайдеров каналов с реестрами
// вендоров. Набор вендоров фиксирован на все время жизни процесса.
func (a *Application) buildChannelFactory(r *renderer.TemplateRenderer) (*channel.Factory, error) {
	smtpCfg := vendor.SMTPConfig{
		Host:     a.config.Email.SMTP.Host,
		Port:     a.config.Email.SMTP.Port,
		Username: a.config.Email.SMTP.Username,
		Password: a.config.Email.SMTP.Password,
		UseTLS:   a.config.Email.SMTP.UseTLS,
	}
	smtpVendor, err := vendor.NewSMTPVendor(smtpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init smtp vendor: %w", err)
	}

	emailVendors := vendor.NewRegistry[vendor.EmailVendor](
		"email",
		a.config.Email.ActiveVendor,
		smtpVendor,
		vendor.NewRawSMTPVendor(smtpCfg),
	)

	smsVendors := vendor.NewRegistry[vendor.SMSVendor](
		"sms",
		a.config.SMS.ActiveVendor,
		vendor.NewGatewaySMSVendor(vendor.GatewayConfig{
			URL:     a.config.SMS.Gateway.URL,
			APIKey:  a.config.SMS.Gateway.APIKey,
			Timeout: a.config.SMS.Gateway.Timeout,
		}),
		vendor.NewStdoutSMSVendor(),
	)

	return channel.NewFactory(
		channel.NewEmailProvider(r, emailVendors, a.config.Email.From, a.config.Email.SendTimeout),
		channel.NewSMSProvider(r, smsVendors, a.config.SMS.SenderID, a.config.SMS.SendTimeout),
	), nil
}

// queueAliases возвращает карту алиас -> имя очереди для админских операций.
func (a *Application) queueAliases() map[string]string {
	return map[string]string{
		"request":     a.config.RabbitMQ.Request.Queue,
		"request-dlq": a.config.RabbitMQ.Request.Queue + rabbitmq.DLQSuffix,
		"receipt":     a.config.RabbitMQ.Receipt.Queue,
		"receipt-dlq": a.config.RabbitMQ.Receipt.Queue + rabbitmq.DLQSuffix,
	}
}

// monitoredQueues возвращает список очередей для монитора.
func (a *Application) monitoredQueues() []string {
	return []string{
		a.config.RabbitMQ.Request.Queue,
		a.config.RabbitMQ.Request.Queue + rabbitmq.DLQSuffix,
		a.config.RabbitMQ.Receipt.Queue,
		a.config.RabbitMQ.Receipt.Queue + rabbitmq.DLQSuffix,
	}
}

// runHealthCheck проверяет состояние всех подключений.
func (a *Application) runHealthCheck() error {
	fmt.Println("Running health check...")

	if err := a.checkDatabase(); err != nil {
		return fmt.Errorf("database check failed: %w", err)
	}
	fmt.Println("✅ Database connection: OK")

	if err := a.checkRedis(); err != nil {
		return fmt.Errorf("redis check failed: %w", err)
	}
	fmt.Println("✅ Redis connection: OK")

	if err := a.checkRabbitMQ(); err != nil {
		return fmt.Errorf("rabbitmq check failed: %w", err)
	}
	fmt.Println("✅ RabbitMQ connection: OK")

	fmt.Println("🎉 All health checks passed!")
	return nil
}

// checkDatabase проверяет подключение к базе данных.
func (a *Application) checkDatabase() error {
	db, err := initDatabase(a.config.Database)
	if err != nil {
		return err
	}
	defer func(Master *sql.DB) {
		_ = Master.Close()
	}(db.Master)

	return db.Master.Ping()
}

// checkRedis проверяет подключение к Redis.
func (a *Application) checkRedis() error {
	client := redis.New(a.config.Redis.Addr, a.config.Redis.Password, a.config.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}

// checkRabbitMQ проверяет подключение к RabbitMQ.
func (a *Application) checkRabbitMQ() error {
	cfg := a.config.RabbitMQ
	client, err := rabbitmq.NewClient(rabbitmq.ClientConfig{
		URL:            cfg.URL,
		ConnectionName: cfg.ConnectionName + "-health",
		ConnectTimeout: 5 * time.Second,
		Heartbeat:      5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return client.Ping()
}

// runMigrate запускает приложение в режиме миграций.
func (a *Application) runMigrate() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("migrate command requires direction (up/down)")
	}

	direction := os.Args[2]

	switch direction {
	case "up":
		return a.migrate(func(m *migrator.Migrator) error { return m.Up() }, "applied")
	case "down":
		return a.migrate(func(m *migrator.Migrator) error { return m.Down() }, "rolled back")
	default:
		return fmt.Errorf("unknown migrate direction: %s (use up/down)", direction)
	}
}

func (a *Application) migrate(run func(*migrator.Migrator) error, action string) error {
	db, err := initDatabase(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer func(Master *sql.DB) {
		_ = Master.Close()
	}(db.Master)

	m, err := migrator.NewMigrator(db.Master, a.config.Migrations.Path)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := run(m); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	zlog.Logger.Info().Msgf("Migrations %s successfully", action)
	return nil
}

// initDatabase инициализирует подключение к базе данных.
func initDatabase(cfg cfgman.DatabaseConfig) (*dbpg.DB, error) {
	opts := &dbpg.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}

	db, err := dbpg.New(cfg.DSN, nil, opts)
	if err != nil {
		return nil, err
	}

	if err := db.Master.Ping(); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Msg("Database connection established")
	return db, nil
}

// initRedis инициализирует подключение к Redis.
func initRedis(cfg cfgman.RedisConfig) (*redis.Client, error) {
	client := redis.New(cfg.Addr, cfg.Password, cfg.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	zlog.Logger.Info().Msg("Redis connection established")
	return client, nil
}

// initRabbitMQ инициализирует подключение к RabbitMQ и объявляет
// топологию: оба топика с производными dead-letter очередями.
func initRabbitMQ(cfg cfgman.RabbitMQConfig) (*rabbitmq.RabbitClient, error) {
	client, err := rabbitmq.NewClient(rabbitmq.ClientConfig{
		URL:            cfg.URL,
		ConnectionName: cfg.ConnectionName,
		ConnectTimeout: cfg.ConnectTimeout,
		Heartbeat:      cfg.Heartbeat,
		PublishRetry: retry.Strategy{
			Attempts: cfg.PublishRetry.Attempts,
			Delay:    cfg.PublishRetry.Delay,
			Backoff:  float64(cfg.PublishRetry.Backoff),
		},
	})
	if err != nil {
		return nil, err
	}

	for _, topic := range []cfgman.TopicConfig{cfg.Request, cfg.Receipt} {
		if err := client.DeclareTopic(topic.Exchange, topic.Queue, topic.RoutingKey); err != nil {
			zlog.Logger.Error().Err(err).Str("queue", topic.Queue).Msg("Failed to declare topic")
			return nil, err
		}
	}

	zlog.Logger.Info().Msg("RabbitMQ connection established")
	return client, nil
}

// setupHTTPServer настраивает HTTP сервер.
func (a *Application) setupHTTPServer() {
	a.server = ginext.New(gin.ReleaseMode)
	a.server.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-IJT"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))

	a.server.Use(middleware.RequestIDMiddleware())
	a.server.Use(middleware.LoggingMiddleware())

	h := handlers.NewHandlersSet(a.service, a.admin)

	group := a.server.RouterGroup.Group("notify")
	group.POST("/", h.CreateNotificationHandler)
	group.GET("/:correlation_id", h.GetNotificationHandler)

	adminGroup := a.server.RouterGroup.Group("admin/queues")
	adminGroup.POST("/purge", h.PurgeAllQueuesHandler)
	adminGroup.POST("/:alias/purge", h.PurgeQueueHandler)
}

// cleanup освобождает ресурсы.
func (a *Application) cleanup() {
	zlog.Logger.Info().Msg("Cleaning up resources...")

	if a.rabbit != nil {
		_ = a.rabbit.Close()
	}

	if a.db != nil {
		_ = a.db.Master.Close()
	}

	zlog.Logger.Info().Msg("Cleanup completed")
}
