package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/cognichat/internal/analytics"
	"github.com/ashureev/cognichat/internal/config"
	"github.com/ashureev/cognichat/internal/render"
)

type askOptions struct {
	rows     int
	showCode bool
	dataset  string
}

func newAskCommand() *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print it",
		Example: `  cognichat ask "Show me revenue trends by month"
  cognichat ask --rows 20 --code "summary"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.dataset != "" {
				cfg.Dataset.Path = opts.dataset
			}
			if !cmd.Flags().Changed("rows") {
				opts.rows = cfg.DefaultMaxRows
			}

			ds, err := loadDataset(cfg.Dataset)
			if err != nil {
				return err
			}
			resp := analytics.Dispatch(strings.Join(args, " "), ds, opts.rows)

			termOpts := render.TerminalOptions{ShowCode: opts.showCode}
			if f, ok := cmd.OutOrStdout().(*os.File); ok {
				termOpts.Styled, termOpts.Width = render.DetectTerminal(f)
			}
			out, err := render.NewTerminal(cmd.OutOrStdout(), termOpts)
			if err != nil {
				return err
			}
			return out.Print(resp)
		},
	}

	cmd.Flags().IntVar(&opts.rows, "rows", analytics.DefaultMaxRows, "maximum rows in a data preview")
	cmd.Flags().BoolVar(&opts.showCode, "code", false, "print the analysis trace")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "CSV file to analyze instead of the configured dataset")
	return cmd
}
