package main

import (
	"context"
	"os"

	"github.com/contactkeval/implied-vol/internal/logger"
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		logger.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
