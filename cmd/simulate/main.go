package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/crowdex/vigil/internal/simulate"
)

const (
	defaultTimeout   = 2 * time.Minute
	defaultFrameSkip = 1
)

func main() {
	var (
		scenarios  = flag.String("scenarios", "", "Comma-separated scenario names to run (default: all)")
		outputFile = flag.String("output", "", "Output file for raised alerts (default: alerts_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: simulation_TIMESTAMP.log)")
		timeout    = flag.Duration("timeout", defaultTimeout, "Overall run timeout")
		frameSkip  = flag.Int("skip", defaultFrameSkip, "Process every n-th frame")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	output := *outputFile
	if output == "" {
		output = "alerts_" + time.Now().Format("20060102_150405") + ".json"
	}

	var names []string
	if *scenarios != "" {
		for _, name := range strings.Split(*scenarios, ",") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	config := &simulate.Config{
		Scenarios:  names,
		OutputFile: output,
		LogFile:    *logFile,
		Timeout:    *timeout,
		FrameSkip:  *frameSkip,
		Verbose:    *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
