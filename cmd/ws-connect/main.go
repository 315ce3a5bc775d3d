// Package main implements the WebSocket $connect Lambda. Clients pass the
// view they watch as ?viewId= and, when JWT_SECRET is set, a ?token=.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"devrank/infrastructure/config"
	"devrank/infrastructure/di"
	"devrank/interfaces/websocket"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	validator, err := di.ProvideJWTValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to create token validator: %v", err)
	}

	store := di.ProvideConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg, logger)

	var tokens websocket.TokenValidator
	if validator != nil {
		tokens = validator
	}
	lambda.Start(websocket.NewConnectHandler(store, tokens, logger).Handle)
}
