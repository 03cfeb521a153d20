package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"fintrust/internal/scoring/features"
)

func deriveCommand() *cli.Command {
	return &cli.Command{
		Name:    "derive",
		Aliases: []string{"d"},
		Usage:   "Print the feature vector derived from applicant data",
		Flags:   applicantFlags(),
		Action:  cmdDerive,
	}
}

func cmdDerive(_ context.Context, cmd *cli.Command) error {
	vector, err := features.Derive(applicantInput(cmd))
	if err != nil {
		return fmt.Errorf("deriving features: %w", err)
	}
	return encode(cmd, vector)
}
