package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/crowdex/vigil/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging configures logging to both console and file. If logFile is
// empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulation_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Vigil Scenario Simulator
========================

Runs scripted threat scenarios through the full analysis pipeline and
verifies the expected events and alerts come out the other end.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -scenarios string
        Comma-separated scenario names to run (default: all)
        Available: abandonment, collapse, brawl, scatter
  -output string
        Output file for raised alerts (default: alerts_TIMESTAMP.json)
  -log string
        Log file for run output (default: simulation_TIMESTAMP.log)
  -timeout duration
        Overall run timeout (default 2m)
  -skip int
        Process every n-th frame (default 1)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run every scenario
  go run cmd/simulate/main.go

  # Run only the fight scenarios
  go run cmd/simulate/main.go -scenarios brawl,scatter

  # Keep the raised alerts for inspection
  go run cmd/simulate/main.go -output alerts.json
`)
}
