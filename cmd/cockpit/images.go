package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cockpit/internal/pipeline"
)

func imagesCmd(load runtimeLoader) *cobra.Command {
	var opts pipeline.RunOptions

	cmd := &cobra.Command{
		Use:   "images <slug>",
		Short: "Generate and insert images for a document's sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			slug, err := rt.Docs.Resolve(args[0])
			if err != nil {
				return err
			}

			report, err := rt.Pipeline.Run(cmd.Context(), slug, opts)
			if err != nil {
				return fmt.Errorf("images %s: %w", slug, err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().IntVar(&opts.MaxSections, "max", 0, "maximum sections to illustrate (0 = all)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print intents without generating or writing")

	return cmd
}
