package main

import (
	"context"
	"log"
	"time"

	"crm-backend/infrastructure/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	adapter   *chiadapter.ChiLambdaV2
	container *di.Container
	initTime  time.Time
	coldStart = true
)

func init() {
	initTime = time.Now()

	var err error
	container, err = di.InitializeContainer()
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	adapter = chiadapter.NewV2(container.Router)

	container.Logger.Info("lambda initialized",
		zap.Duration("init_duration", time.Since(initTime)),
	)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		container.Logger.Info("cold start",
			zap.Duration("since_init", time.Since(initTime)),
		)
		coldStart = false
	}
	return adapter.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(handler)
}
