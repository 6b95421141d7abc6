// Command vision-sidecar detects and labels UI elements in screenshots for a
// host application. It speaks line-delimited JSON over stdin/stdout; all
// diagnostics go to stderr so the protocol channel stays clean.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mathieufro/strobe-vision/internal/config"
	"github.com/mathieufro/strobe-vision/internal/pipeline"
	"github.com/mathieufro/strobe-vision/internal/protocol"
	"github.com/mathieufro/strobe-vision/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("vision-sidecar %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("vision-sidecar - UI element detection sidecar")
			fmt.Println()
			fmt.Println("Usage: vision-sidecar [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  STROBE_VISION_MODELS_DIR      Model assets directory override")
			fmt.Println("  STROBE_VISION_DEVICE          Force compute device (cpu|cuda|mps)")
			fmt.Println("  STROBE_VISION_LOG_LEVEL       Log level (default: info)")
			fmt.Println("  STROBE_VISION_MAX_LINE_BYTES  Max request line size")
			fmt.Println()
			fmt.Println("The sidecar reads one JSON request per line on stdin and writes")
			fmt.Println("one JSON response per line on stdout.")
			return
		}
	}

	// Stdout is the protocol channel; everything diagnostic goes to stderr.
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("unknown log level %q, using info", cfg.LogLevel)
	}

	device := cfg.Device
	if device == "" {
		device = vision.SelectDevice()
	}

	// Missing model assets are fatal here, before the request loop starts —
	// never per request.
	modelsDir, err := vision.ModelsDir(cfg.ModelsDir)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	manager := vision.NewManager(modelsDir, device,
		vision.LoadONNXDetector, vision.LoadTesseractCaptioner, log)
	pipe := pipeline.New(manager, log)
	server := protocol.New(pipe, manager, log, cfg.MaxLineBytes)

	log.WithFields(logrus.Fields{
		"device":     device,
		"models_dir": modelsDir,
		"version":    Version,
	}).Info("vision sidecar starting")

	if err := server.Run(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
