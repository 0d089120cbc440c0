// CogniChat - conversational sales analytics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/cognichat/internal/config"
	"github.com/ashureev/cognichat/internal/dataset"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "cognichat",
		Short:        "Ask questions about a sales dataset",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return err
			}
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file to read before the environment")

	root.AddCommand(newServeCommand(), newAskCommand())
	return root
}

// loadDataset opens the configured CSV, or generates the synthetic sample.
func loadDataset(cfg config.DatasetConfig) (*dataset.Dataset, error) {
	if cfg.Path != "" {
		ds, err := dataset.LoadCSV(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		return ds, nil
	}
	return dataset.Sample(cfg.Seed, cfg.Size), nil
}
