package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"fintrust/internal/scoring/risk"
)

func tierCommand() *cli.Command {
	return &cli.Command{
		Name:      "tier",
		Aliases:   []string{"t"},
		Usage:     "Map a creditworthiness probability to its risk tier",
		ArgsUsage: "<probability>",
		Action:    cmdTier,
	}
}

type tierResult struct {
	Probability  float64   `json:"probability" yaml:"probability"`
	RiskTier     risk.Tier `json:"risk_tier" yaml:"risk_tier"`
	Creditworthy bool      `json:"creditworthy" yaml:"creditworthy"`
}

func cmdTier(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one probability argument, got %d", cmd.Args().Len())
	}
	p, err := strconv.ParseFloat(cmd.Args().First(), 64)
	if err != nil {
		return fmt.Errorf("parsing probability %q: %w", cmd.Args().First(), err)
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("probability %v is outside [0, 1]", p)
	}
	return encode(cmd, tierResult{
		Probability:  p,
		RiskTier:     risk.Classify(p),
		Creditworthy: risk.Creditworthy(p),
	})
}
