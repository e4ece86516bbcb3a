package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/secsky/secsky/backend/internal/app"
)

func main() {
	application, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	lambda.Start(application.HandleRequest)
}
