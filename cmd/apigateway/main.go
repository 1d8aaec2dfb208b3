package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/boogy/aws-cognito-warden/pkg/handler"
)

var bootstrap *handler.Bootstrap

func init() {
	var err error
	bootstrap, err = handler.NewBootstrap()
	if err != nil {
		panic(err)
	}
}

func main() {
	apiHandler := handler.NewAwsApiGatewayFromBootstrap(bootstrap)

	// Pending snapshot writes and buffered logs are flushed when the runtime shuts the container down
	lambda.StartWithOptions(apiHandler.Handler, lambda.WithEnableSIGTERM(bootstrap.Cleanup))
}
