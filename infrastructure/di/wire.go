//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
)

// SuperSet is the full provider graph
var SuperSet = wire.NewSet(
	ProvideConfig,
	ProvideDomainConfig,
	ProvideLogger,
	ProvideClock,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideSchemaCapabilities,
	ProvideRepositories,
	ProvideEventBus,
	ProvideJWTValidator,
	ProvidePermissionChecker,
	ProvideReconciler,
	ProvideNotifier,
	ProvideSweeper,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRouter,
	ProvideContainer,
)

// InitializeContainer builds the full application container
func InitializeContainer() (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
