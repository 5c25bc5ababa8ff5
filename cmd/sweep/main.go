// Command sweep runs a single reconciliation sweep and exits. Deployed
// as a scheduled Lambda or invoked by hand against a misbehaving
// environment.
package main

import (
	"context"
	"log"
	"os"

	"crm-backend/infrastructure/di"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func runOnce(ctx context.Context) error {
	container, err := di.InitializeContainer()
	if err != nil {
		return err
	}
	defer container.Shutdown()

	result, err := container.Sweeper.RunOnce(ctx)
	if err != nil {
		container.Logger.Error("sweep failed", zap.Error(err))
		return err
	}

	container.Logger.Info("sweep complete",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return nil
}

func main() {
	// Scheduled-Lambda deployments set AWS_LAMBDA_FUNCTION_NAME; a bare
	// invocation runs the sweep directly.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(runOnce)
		return
	}
	if err := runOnce(context.Background()); err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
}
