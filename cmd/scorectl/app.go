package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"fintrust/internal/scoring/features"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

const (
	debugFlag      = "debug"
	outputFlag     = "output"
	amountFlag     = "amount"
	purposeFlag    = "purpose"
	ageFlag        = "age"
	genderFlag     = "gender"
	incomeFlag     = "income"
	livelihoodFlag = "livelihood"
)

// Flags are built per command tree; urfave flags carry parse state.
func applicantFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:     amountFlag,
			Usage:    "Requested loan amount",
			Required: true,
		},
		&cli.StringFlag{
			Name:  purposeFlag,
			Usage: "Free-text loan purpose (car, education, business...)",
		},
		&cli.IntFlag{
			Name:  ageFlag,
			Usage: "Applicant age in years (optional)",
		},
		&cli.StringFlag{
			Name:  genderFlag,
			Usage: "Applicant gender (optional)",
		},
		&cli.FloatFlag{
			Name:  incomeFlag,
			Usage: "Monthly income (optional)",
		},
		&cli.StringFlag{
			Name:  livelihoodFlag,
			Usage: "Occupation description (optional)",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "scorectl",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Usage:   "Offline credit scoring toolkit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:    outputFlag,
				Aliases: []string{"o"},
				Usage:   "Output format [json, yaml]",
				Value:   formatJSON,
			},
		},
		Commands: []*cli.Command{
			deriveCommand(),
			scoreCommand(),
			tierCommand(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(debugFlag) {
				initLogging(true)
			}
			switch f := cmd.String(outputFlag); f {
			case formatJSON, formatYAML, "yml":
			default:
				return ctx, fmt.Errorf("unsupported output format %q", f)
			}
			return ctx, nil
		},
	}
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// applicantInput reads the applicant flags. Unset optional flags stay nil so
// derivation applies its defaults.
func applicantInput(cmd *cli.Command) features.Input {
	in := features.Input{
		LoanAmount: cmd.Float(amountFlag),
		Purpose:    cmd.String(purposeFlag),
	}
	if cmd.IsSet(ageFlag) {
		age := cmd.Int(ageFlag)
		in.Age = &age
	}
	if cmd.IsSet(genderFlag) {
		gender := cmd.String(genderFlag)
		in.Gender = &gender
	}
	if cmd.IsSet(incomeFlag) {
		income := cmd.Float(incomeFlag)
		in.Income = &income
	}
	if cmd.IsSet(livelihoodFlag) {
		livelihood := cmd.String(livelihoodFlag)
		in.Livelihood = &livelihood
	}
	return in
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if f := cmd.String(outputFlag); f == formatYAML || f == "yml" {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
