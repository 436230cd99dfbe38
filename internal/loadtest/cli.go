package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/mediarank/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "ranktest_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the ranking load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Mediarank Load Test Tool
========================

A concurrent tool for exercising the mediarank rating service.

Usage:
  go run cmd/ranktest/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -media int
        Number of media items to register (default 200)
  -users int
        Number of synthetic users (default 20)
  -submissions int
        Number of ranking rounds to play (default 5000)
  -top int
        Number of top entries to fetch from leaderboard (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: ranktest_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/ranktest/main.go

  # Test with custom parameters
  go run cmd/ranktest/main.go -submissions 20000 -workers 16 -url http://localhost:8080

  # Test with verbose output
  go run cmd/ranktest/main.go -verbose -submissions 1000
`)
}
