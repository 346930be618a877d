package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/exemplar-go/pkg/config"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "exemplar",
	Short: "Example-driven extractor synthesis",
	Long: `Exemplar turns input/output example pairs into a working Python
extractor module. It diffs the pairs to infer typed transformation
patterns, filters them by confidence, asks an LLM to plan and implement
the extractor under architectural constraints, then statically validates
the result and refines it until it reproduces every example.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real deployments set the environment directly.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		outputs := []logging.Output{logging.NewConsoleOutput(true)}
		if cfg.Logging.File != "" {
			fileOut, err := logging.NewFileOutput(cfg.Logging.File)
			if err != nil {
				return err
			}
			outputs = append(outputs, fileOut)
		}
		logging.SetLogger(logging.NewLogger(logging.Config{
			Severity: logging.ParseSeverity(cfg.Logging.Level),
			Outputs:  outputs,
		}))
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(patternsCmd)
}

// loadExamples reads a JSON array of {input, output} pairs.
func loadExamples(path string) ([]core.ExamplePair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read examples file")
	}
	var examples []core.ExamplePair
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "examples file is not a JSON array of pairs")
	}
	return examples, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
