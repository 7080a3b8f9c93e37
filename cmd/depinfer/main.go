package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"

	"github.com/proteodep/depinfer/internal/config"
	"github.com/proteodep/depinfer/internal/matrix"
	"github.com/proteodep/depinfer/internal/pipeline"
	"github.com/proteodep/depinfer/internal/reduce"
	"github.com/proteodep/depinfer/internal/utils/logger"
)

// RunSummary is the JSON diagnostic written next to the result matrices.
type RunSummary struct {
	Drugs             int                      `json:"drugs"`
	Proteins          int                      `json:"proteins"`
	Samples           int                      `json:"samples"`
	Repeats           int                      `json:"repeats"`
	Lambdas           []float64                `json:"lambdas"`
	LambdaMean        float64                  `json:"lambdaMean"`
	LambdaStdDev      float64                  `json:"lambdaStdDev"`
	VarianceExplained []float64                `json:"varianceExplained"`
	MeanVarExplained  float64                  `json:"meanVarianceExplained"`
	Groups            []reduce.SimilarityGroup `json:"similarityGroups,omitempty"`
}

func main() {
	logger.Init()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	affinity, err := matrix.ReadCSV(cfg.AffinityPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AffinityPath).Msg("failed to read affinity matrix")
	}
	response, err := matrix.ReadCSV(cfg.ResponsePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ResponsePath).Msg("failed to read response matrix")
	}

	// Subset both matrices to the drugs they share, in affinity row order.
	affinity, response, err = matrix.AlignRows(affinity, response)
	if err != nil {
		log.Fatal().Err(err).Msg("affinity and response matrices share no drugs")
	}

	p := pipeline.New(
		pipeline.WithTransform(cfg.Transform),
		pipeline.WithDedupe(cfg.Dedupe),
		pipeline.WithCutoff(cfg.Cutoff),
		pipeline.WithKeep(cfg.Keep...),
		pipeline.WithRepeats(cfg.Repeats),
		pipeline.WithFolds(cfg.Folds),
		pipeline.WithWorkers(cfg.Workers),
	)

	result, err := p.Run(context.Background(), affinity, response)
	if err != nil {
		log.Fatal().Err(err).Msg("dependency inference failed")
	}

	if err := writeResults(cfg.OutputDir, result); err != nil {
		log.Fatal().Err(err).Msg("failed to write results")
	}
	log.Info().Str("dir", cfg.OutputDir).Msg("results written")
}

func writeResults(dir string, result *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := matrix.WriteCSV(filepath.Join(dir, "coefficients.csv"), "protein", result.Coefficients); err != nil {
		return err
	}
	if err := matrix.WriteCSV(filepath.Join(dir, "frequencies.csv"), "protein", result.Frequencies); err != nil {
		return err
	}

	summary, err := buildSummary(result)
	if err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), data, 0o644)
}

func buildSummary(result *pipeline.Result) (*RunSummary, error) {
	lambdaMean, err := stats.Mean(result.Lambdas)
	if err != nil {
		return nil, err
	}
	lambdaSD, err := stats.StandardDeviation(result.Lambdas)
	if err != nil {
		return nil, err
	}
	meanVarExpl, err := stats.Mean(result.VarianceExplained)
	if err != nil {
		return nil, err
	}

	drugs, proteins := result.Affinity.Dims()
	_, samples := result.Response.Dims()

	return &RunSummary{
		Drugs:             drugs,
		Proteins:          proteins,
		Samples:           samples,
		Repeats:           len(result.Lambdas),
		Lambdas:           result.Lambdas,
		LambdaMean:        lambdaMean,
		LambdaStdDev:      lambdaSD,
		VarianceExplained: result.VarianceExplained,
		MeanVarExplained:  meanVarExpl,
		Groups:            result.Groups,
	}, nil
}
