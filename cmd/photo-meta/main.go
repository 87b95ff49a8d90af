// cmd/photo-meta/main.go
package main

import (
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
