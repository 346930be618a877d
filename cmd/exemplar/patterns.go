package main

import (
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/exemplar-go/pkg/patterns"
)

// patternsCmd runs extraction and filtering only, with no LLM calls. It is
// the dry-run used to tune the confidence threshold before paying for a
// full synthesis.
var patternsCmd = &cobra.Command{
	Use:   "patterns <examples.json>",
	Short: "Infer and print transformation patterns without generating code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		examples, err := loadExamples(args[0])
		if err != nil {
			return err
		}

		extractor := patterns.NewExtractor(patterns.WithParallelism(cfg.Pipeline.Parallelism))
		inputSchema, outputSchema, detected, err := extractor.Extract(ctx, examples)
		if err != nil {
			return err
		}
		filtered, err := patterns.Filter(detected, cfg.Pipeline.Threshold)
		if err != nil {
			return err
		}

		return printJSON(map[string]interface{}{
			"input_schema":  inputSchema.Fields,
			"output_schema": outputSchema.Fields,
			"included":      filtered.Included,
			"excluded":      filtered.Excluded,
			"threshold":     filtered.Threshold,
		})
	},
}
