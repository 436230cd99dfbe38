// Command ranktest exercises a running mediarank service: it registers
// a synthetic catalog, plays concurrent ranking rounds and verifies
// the resulting leaderboard.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/mediarank/internal/loadtest"
)

const (
	defaultNumMedia       = 200
	defaultNumUsers       = 20
	defaultNumSubmissions = 5000
	defaultTopN           = 50
	defaultTimeout        = 30 * time.Second
	workerCPUMultiplier   = 2
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numMedia       = flag.Int("media", defaultNumMedia, "Number of media items to register")
		numUsers       = flag.Int("users", defaultNumUsers, "Number of synthetic users")
		numSubmissions = flag.Int("submissions", defaultNumSubmissions, "Number of ranking rounds to play")
		topN           = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers        = flag.Int("workers", runtime.NumCPU()*workerCPUMultiplier, "Number of concurrent workers")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile        = flag.String("log", "", "Log file for test output (default: ranktest_TIMESTAMP.log)")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
		help           = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &loadtest.Config{
		BaseURL:        *baseURL,
		NumMedia:       *numMedia,
		NumUsers:       *numUsers,
		NumSubmissions: *numSubmissions,
		TopN:           *topN,
		Workers:        *workers,
		Timeout:        *timeout,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := loadtest.Run(ctx, config); err != nil {
		log.Fatalf("load test failed: %v", err)
	}
}
