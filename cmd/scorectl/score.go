package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"fintrust/internal/scoring/features"
	"fintrust/internal/scoring/inference"
	"fintrust/internal/scoring/models"
	"fintrust/internal/scoring/risk"
)

const defaultModelPath = "models/credit_risk.yaml"

const modelFlag = "model"

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Derive features and score them with a model artifact",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    modelFlag,
				Aliases: []string{"m"},
				Usage:   "Path to the model artifact",
				Value:   defaultModelPath,
			},
		}, applicantFlags()...),
		Action: cmdScore,
	}
}

type scoreResult struct {
	Probability  float64         `json:"probability" yaml:"probability"`
	Creditworthy bool            `json:"creditworthy" yaml:"creditworthy"`
	RiskTier     risk.Tier       `json:"risk_tier" yaml:"risk_tier"`
	ModelVersion string          `json:"model_version" yaml:"model_version"`
	Fallback     bool            `json:"fallback" yaml:"fallback"`
	Breakdown    features.Vector `json:"breakdown" yaml:"breakdown"`
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	vector, err := features.Derive(applicantInput(cmd))
	if err != nil {
		return fmt.Errorf("deriving features: %w", err)
	}

	// A missing artifact scores like the server does: the fallback record.
	var runtime inference.Runtime
	path := cmd.String(modelFlag)
	if loaded, err := inference.LoadArtifact(path); err != nil {
		slog.Warn("model not loaded, using fallback", "path", path, "error", err)
	} else {
		runtime = loaded
	}
	adapter := inference.NewAdapter(runtime)

	out := scoreResult{ModelVersion: adapter.ModelVersion(), Breakdown: vector}
	result, err := adapter.Infer(ctx, vector)
	if err != nil {
		slog.Debug("inference failed", "error", err)
		out.Probability = models.FallbackProbability
		out.RiskTier = models.FallbackTier
		out.Fallback = true
		return encode(cmd, out)
	}

	out.Probability = result.Probability
	out.Creditworthy = result.Creditworthy
	out.RiskTier = risk.Classify(result.Probability)
	return encode(cmd, out)
}
