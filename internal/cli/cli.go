package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dcan-labs/fmripipe/internal/app"
	"github.com/dcan-labs/fmripipe/internal/params"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// participantList accumulates --participant-label values; the flag may be
// repeated and each occurrence may carry a comma-separated list.
type participantList []string

func (p *participantList) String() string {
	return strings.Join(*p, ",")
}

func (p *participantList) Set(value string) error {
	for _, label := range strings.Split(value, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			*p = append(*p, label)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("fmripipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
fmripipe - The DCAN lab fMRI pipeline driver, a BIDS application built on
the Human Connectome Project's minimal processing pipelines.

Usage:
  fmripipe [options] BIDS_DIR OUTPUT_DIR

Arguments:
  BIDS_DIR
    Path to the input BIDS dataset root directory.
  OUTPUT_DIR
    Path to the output directory for all intermediate and output files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var participants participantList
	flagSet.Var(&participants, "participant-label", "Participant id(s) to run, comma separated or repeated. Default is all ids found under the BIDS input directory.")
	allSessionsFlag := flagSet.Bool("all-sessions", false, "Collapse all sessions into one when running a subject.")
	ncpusFlag := flagSet.Int("ncpus", 1, "Number of cores forwarded to each stage for concurrent processing.")
	stageFlag := flagSet.String("stage", "", fmt.Sprintf("Begin from a given stage, continuing through. Options: %s.", strings.Join(params.StageOrder(), ", ")))
	paramsPathFlag := flagSet.String("params-path", "", "Path to an .hcl stage parameter manifest, or a directory of them.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Log assembled commands without executing the external tools.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health/status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No positional arguments provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() != 2 {
		return nil, false, &ExitError{Code: 2, Message: "expected exactly two positional arguments: BIDS_DIR and OUTPUT_DIR"}
	}
	bidsDir := flagSet.Arg(0)
	outputDir := flagSet.Arg(1)

	if info, err := os.Stat(bidsDir); err != nil || !info.IsDir() {
		return nil, false, &ExitError{Code: 2, Message: bidsDir + " is not a directory"}
	}

	if *ncpusFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid ncpus: must be at least 1"}
	}

	if *stageFlag != "" && !params.IsKnownStage(*stageFlag) {
		return nil, false, &ExitError{
			Code:    2,
			Message: fmt.Sprintf("'%s' is unknown, check name and case for the given stage. Options: %s", *stageFlag, strings.Join(params.StageOrder(), ", ")),
		}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		BIDSDir:           bidsDir,
		OutputDir:         outputDir,
		ParticipantLabels: participants,
		AllSessions:       *allSessionsFlag,
		NCPUs:             *ncpusFlag,
		StartStage:        *stageFlag,
		ParamsPath:        *paramsPathFlag,
		DryRun:            *dryRunFlag,
		HealthcheckPort:   *healthPortFlag,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
