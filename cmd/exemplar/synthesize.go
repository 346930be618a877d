package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/llms"
	"github.com/XiaoConstantine/exemplar-go/pkg/patterns"
	"github.com/XiaoConstantine/exemplar-go/pkg/pipeline"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <examples.json>",
	Short: "Generate an extractor module from example pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		examples, err := loadExamples(args[0])
		if err != nil {
			return err
		}

		llm, err := llms.NewLLM(ctx, llms.ProviderConfig{
			Provider:  cfg.LLM.Provider,
			ModelID:   core.ModelID(cfg.LLM.ModelID),
			APIKey:    cfg.LLM.APIKey,
			CachePath: cfg.LLM.CachePath,
		})
		if err != nil {
			return err
		}
		if closer, ok := llm.(*llms.CachedLLM); ok {
			defer closer.Close()
		}

		p := pipeline.New(llm,
			pipeline.WithThreshold(cfg.Pipeline.Threshold),
			pipeline.WithMaxIterations(cfg.Pipeline.MaxIterations),
			pipeline.WithConstraints(cfg.Constraints),
			pipeline.WithStorage(pipeline.NewFileStorage(cfg.Output.Dir)),
			pipeline.WithExtractorOptions(patterns.WithParallelism(cfg.Pipeline.Parallelism)),
		)

		result, err := p.Run(ctx, examples)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: quality %.2f, %d/%d patterns included, converged=%v\n",
			result.RunID, result.Report.QualityScore,
			result.Report.PatternsIncluded, result.Report.PatternsDetected,
			result.Report.Converged)
		fmt.Fprintf(cmd.OutOrStdout(), "artifacts written under %s/%s\n", cfg.Output.Dir, result.RunID)
		return nil
	},
}
