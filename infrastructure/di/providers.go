// Package di assembles the application with google/wire. The providers
// here are the single place that knows which concrete implementation
// backs each port.
package di

import (
	"context"
	"fmt"

	"crm-backend/application/commands"
	commandbus "crm-backend/application/commands/bus"
	commandhandlers "crm-backend/application/commands/handlers"
	"crm-backend/application/ports"
	"crm-backend/application/queries"
	querybus "crm-backend/application/queries/bus"
	queryhandlers "crm-backend/application/queries/handlers"
	"crm-backend/application/services"
	domaincfg "crm-backend/domain/config"
	"crm-backend/infrastructure/config"
	"crm-backend/infrastructure/messaging/eventbridge"
	"crm-backend/infrastructure/messaging/local"
	dynamorepo "crm-backend/infrastructure/persistence/dynamodb"
	"crm-backend/infrastructure/persistence/memory"
	"crm-backend/infrastructure/persistence/schema"
	"crm-backend/interfaces/http/rest"
	"crm-backend/interfaces/http/rest/handlers"
	"crm-backend/interfaces/http/rest/middleware"
	"crm-backend/pkg/auth"
	"crm-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Container holds every constructed component for the lifetime of the
// process
type Container struct {
	Config       *config.Config
	DomainConfig *domaincfg.DomainConfig
	Logger       *zap.Logger

	Reminders     ports.ReminderRepository
	Comments      ports.CommentRepository
	Leads         ports.LeadRepository
	Notifications ports.NotificationRepository
	EventBus      ports.EventBus
	Capabilities  ports.SchemaCapabilities

	Reconciler *services.Reconciler
	Notifier   *services.Notifier
	Sweeper    *services.Sweeper

	CommandBus *commandbus.CommandBus
	QueryBus   *querybus.QueryBus

	Router *chi.Mux
}

// Shutdown flushes loggers and stops background work
func (c *Container) Shutdown() {
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// ProvideConfig loads the service configuration
func ProvideConfig() (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideDomainConfig builds the business rules, with the sweep
// interval taken from the environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	dc := domaincfg.DefaultDomainConfig()
	dc.SweepInterval = cfg.SweepInterval
	return dc
}

// ProvideLogger builds a zap logger suited to the environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		zapCfg := zap.NewProductionConfig()
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		return zapCfg.Build()
	}
	return zap.NewDevelopment()
}

// ProvideClock returns the process clock
func ProvideClock() ports.Clock {
	return ports.NewRealClock()
}

// ProvideAWSConfig loads the AWS SDK configuration
func ProvideAWSConfig(cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates the DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates the EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates the CloudWatch client, or nil for
// local development where metrics are a no-op
func ProvideCloudWatchClient(cfg *config.Config, awsCfg aws.Config) *cloudwatch.Client {
	if cfg.Driver != config.DriverDynamoDB {
		return nil
	}
	return cloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics sink
func ProvideMetrics(client *cloudwatch.Client) *observability.Metrics {
	return observability.NewMetrics("CRMBackend", client)
}

// ProvideTracer creates the tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("crm-backend")
}

// ProvideSchemaCapabilities picks the schema probe for the configured
// driver
func ProvideSchemaCapabilities(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.SchemaCapabilities {
	if cfg.Driver == config.DriverDynamoDB {
		return schema.NewDynamoDBCapabilities(client, cfg.DynamoDBTable, logger)
	}
	return schema.NewDefaultCapabilities()
}

// Repositories bundles the four persistence ports so the driver switch
// happens in one place
type Repositories struct {
	Reminders     ports.ReminderRepository
	Comments      ports.CommentRepository
	Leads         ports.LeadRepository
	Notifications ports.NotificationRepository
}

// ProvideRepositories builds the repository set for the configured
// driver
func ProvideRepositories(
	cfg *config.Config,
	client *awsdynamodb.Client,
	caps ports.SchemaCapabilities,
	tracer *observability.Tracer,
	logger *zap.Logger,
) Repositories {
	if cfg.Driver == config.DriverDynamoDB {
		return Repositories{
			Reminders:     dynamorepo.NewReminderRepository(client, cfg.DynamoDBTable, caps, tracer, logger),
			Comments:      dynamorepo.NewCommentRepository(client, cfg.DynamoDBTable, caps, logger),
			Leads:         dynamorepo.NewLeadRepository(client, cfg.DynamoDBTable, caps, logger),
			Notifications: dynamorepo.NewNotificationRepository(client, cfg.DynamoDBTable, logger),
		}
	}

	store := memory.NewStore(caps)
	return Repositories{
		Reminders:     memory.NewReminderRepository(store),
		Comments:      memory.NewCommentRepository(store),
		Leads:         memory.NewLeadRepository(store),
		Notifications: memory.NewNotificationRepository(store),
	}
}

// ProvideEventBus builds the event bus for the configured driver
func ProvideEventBus(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventBus {
	if cfg.Driver == config.DriverDynamoDB {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return local.NewPublisher(logger)
}

// ProvideJWTValidator builds the token validator. Local development
// without a configured secret falls back to a fixed one; production
// refuses to start that way in config validation.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "local-dev-secret"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvidePermissionChecker builds the lead-backed permission checker
func ProvidePermissionChecker(repos Repositories, dc *domaincfg.DomainConfig) ports.PermissionChecker {
	return services.NewLeadPermissionChecker(repos.Leads, dc)
}

// ProvideReconciler builds the reconciliation engine
func ProvideReconciler(
	repos Repositories,
	perms ports.PermissionChecker,
	eventBus ports.EventBus,
	clock ports.Clock,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.Reconciler {
	return services.NewReconciler(repos.Reminders, repos.Comments, repos.Leads, perms, eventBus, clock, dc, logger)
}

// ProvideNotifier builds the notification writer
func ProvideNotifier(repos Repositories, eventBus ports.EventBus, clock ports.Clock, logger *zap.Logger) *services.Notifier {
	return services.NewNotifier(repos.Notifications, eventBus, clock, logger)
}

// ProvideSweeper builds the periodic sweeper for leads
func ProvideSweeper(
	repos Repositories,
	reconciler *services.Reconciler,
	clock ports.Clock,
	metrics *observability.Metrics,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.Sweeper {
	return services.NewSweeper(repos.Reminders, reconciler, clock, metrics, dc, domaincfg.RefTypeLead, logger)
}

// ProvideCommandBus builds the command bus with every handler
// registered
func ProvideCommandBus(
	repos Repositories,
	perms ports.PermissionChecker,
	reconciler *services.Reconciler,
	notifier *services.Notifier,
	eventBus ports.EventBus,
	clock ports.Clock,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
) (*commandbus.CommandBus, error) {
	cb := commandbus.NewCommandBus()

	registrations := []struct {
		cmd     commandbus.Command
		handler commandbus.CommandHandler
	}{
		{commands.AddReminderCommand{}, commandhandlers.NewAddReminderHandler(repos.Reminders, perms, reconciler, eventBus, clock, logger)},
		{commands.DeleteReminderCommand{}, commandhandlers.NewDeleteReminderHandler(repos.Reminders, perms, reconciler, eventBus, clock, logger)},
		{commands.NotifyReminderCommand{}, commandhandlers.NewNotifyReminderHandler(repos.Reminders, notifier, reconciler, logger)},
		{commands.AddCommentCommand{}, commandhandlers.NewAddCommentHandler(repos.Comments, repos.Leads, perms, notifier, reconciler, eventBus, clock, dc, logger)},
		{commands.ReconcileCommand{}, commandhandlers.NewReconcileHandler(reconciler)},
	}
	for _, reg := range registrations {
		if err := cb.Register(reg.cmd, reg.handler); err != nil {
			return nil, fmt.Errorf("command bus setup: %w", err)
		}
	}
	return cb, nil
}

// ProvideQueryBus builds the query bus with every handler registered
func ProvideQueryBus(
	repos Repositories,
	perms ports.PermissionChecker,
	clock ports.Clock,
	dc *domaincfg.DomainConfig,
) (*querybus.QueryBus, error) {
	qb := querybus.NewQueryBus()

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.ListRemindersQuery{}, queryhandlers.NewListRemindersHandler(repos.Reminders, perms)},
		{queries.ListForDocQuery{}, queryhandlers.NewListForDocHandler(repos.Reminders, perms)},
		{queries.LatestOverdueQuery{}, queryhandlers.NewLatestOverdueHandler(repos.Reminders, perms, clock)},
		{queries.ListCommentsQuery{}, queryhandlers.NewListCommentsHandler(repos.Comments, perms)},
		{queries.DelayedMapQuery{}, queryhandlers.NewDelayedMapHandler(repos.Reminders, repos.Comments, perms, clock, dc)},
		{queries.ListNotificationsQuery{}, queryhandlers.NewListNotificationsHandler(repos.Notifications)},
	}
	for _, reg := range registrations {
		if err := qb.Register(reg.query, reg.handler); err != nil {
			return nil, fmt.Errorf("query bus setup: %w", err)
		}
	}
	return qb, nil
}

// ProvideContainer assembles the container from the constructed parts
func ProvideContainer(
	cfg *config.Config,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
	repos Repositories,
	eventBus ports.EventBus,
	caps ports.SchemaCapabilities,
	reconciler *services.Reconciler,
	notifier *services.Notifier,
	sweeper *services.Sweeper,
	cb *commandbus.CommandBus,
	qb *querybus.QueryBus,
	router *chi.Mux,
) *Container {
	return &Container{
		Config:        cfg,
		DomainConfig:  dc,
		Logger:        logger,
		Reminders:     repos.Reminders,
		Comments:      repos.Comments,
		Leads:         repos.Leads,
		Notifications: repos.Notifications,
		EventBus:      eventBus,
		Capabilities:  caps,
		Reconciler:    reconciler,
		Notifier:      notifier,
		Sweeper:       sweeper,
		CommandBus:    cb,
		QueryBus:      qb,
		Router:        router,
	}
}

// ProvideRouter assembles the HTTP surface
func ProvideRouter(
	repos Repositories,
	reconciler *services.Reconciler,
	notifier *services.Notifier,
	cb *commandbus.CommandBus,
	qb *querybus.QueryBus,
	validator *auth.JWTValidator,
	clock ports.Clock,
	dc *domaincfg.DomainConfig,
	logger *zap.Logger,
) *chi.Mux {
	return rest.NewRouter(rest.RouterDeps{
		Reminders:     handlers.NewReminderHandler(cb, qb, logger),
		Comments:      handlers.NewCommentHandler(cb, qb, logger),
		Leads:         handlers.NewLeadHandler(repos.Leads, reconciler, qb, clock, dc, logger),
		Notifications: handlers.NewNotificationHandler(repos.Notifications, notifier, qb, logger),
		Auth:          middleware.NewAuthenticator(validator, logger),
		Logger:        logger,
	})
}
