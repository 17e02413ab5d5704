// Command verify fetches one real LSST locus from ANTARES, runs the quality
// filter against it and prints the filter report. It needs network access and,
// for authenticated endpoints, ANTARES credentials.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/antares"
	"github.com/scimma/lsst-quality-filter/internal/config"
	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/formatting"
	k8s "github.com/scimma/lsst-quality-filter/internal/kubernetes"
	applogger "github.com/scimma/lsst-quality-filter/internal/logger"
	"github.com/scimma/lsst-quality-filter/internal/manifest/filters"
)

const defaultDiaObjectID = "170055002004914266"

var marshalReport = func(report *engine.Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

func main() {
	diaObjectID := flag.String("id", defaultDiaObjectID, "LSST diaObject ID to fetch")
	configPath := flag.String("config", "", "path to YAML config")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := applogger.NewConsoleLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx := context.Background()
	if cfg.Antares.SecretName != "" && cfg.Antares.APIKey == "" {
		if err := loadSecretCredentials(ctx, &cfg.Antares); err != nil {
			logger.Fatal("Failed to load ANTARES credentials", zap.Error(err))
		}
		logger.Info("Loaded ANTARES credentials from secret",
			zap.String("namespace", cfg.Antares.SecretNamespace),
			zap.String("name", cfg.Antares.SecretName))
	}

	code := run(ctx, os.Stdout, cfg.Antares, *diaObjectID, *asJSON, logger)
	logger.Sync()
	os.Exit(code)
}

func loadSecretCredentials(ctx context.Context, cfg *config.AntaresConfig) error {
	clientset, err := k8s.NewClientset(cfg.Kubeconfig)
	if err != nil {
		return err
	}
	creds, err := k8s.LoadCredentials(ctx, clientset, cfg.SecretNamespace, cfg.SecretName)
	if err != nil {
		return err
	}
	cfg.APIKey = creds.APIKey
	cfg.APISecret = creds.APISecret
	return nil
}

func run(ctx context.Context, out io.Writer, cfg config.AntaresConfig, diaObjectID string, asJSON bool, logger *zap.Logger) int {
	client, err := antares.NewClient(antares.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Timeout:   cfg.Timeout,
	}, logger)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Fetching locus for LSST diaObject ID: %s\n", diaObjectID)
	locus, err := client.GetByLSSTDiaObjectID(ctx, diaObjectID)
	if errors.Is(err, antares.ErrLocusNotFound) {
		fmt.Fprintln(out, "ERROR: Locus not found. Check the diaObject ID and your ANTARES credentials.")
		return 1
	}
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprint(out, formatting.FormatLocus(locus))
	fmt.Fprintln(out)

	filter, err := engine.NewQualityFilter(filters.ScimmaQuality())
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}
	runner := engine.NewRunner(filter, engine.WithLogger(logger))

	fmt.Fprintln(out, "Running filter...")
	report, runErr := runner.Run(ctx, locus)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Filter report:")
	if asJSON {
		raw, err := marshalReport(report)
		if err != nil {
			fmt.Fprintf(out, "ERROR: encode report: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, string(raw))
	} else {
		fmt.Fprint(out, formatting.FormatReport(report))
	}

	fmt.Fprintln(out)
	if runErr != nil {
		fmt.Fprintf(out, "ERROR: %v\n", runErr)
		return 1
	}
	fmt.Fprintln(out, formatting.VerdictLine(report))
	return 0
}
