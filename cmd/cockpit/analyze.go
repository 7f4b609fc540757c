package main

import (
	"github.com/spf13/cobra"
)

func analyzeCmd(load runtimeLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <slug>",
		Short: "List the sections of a document that need an image",
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

			res, err := rt.Pipeline.Analyze(cmd.Context(), slug)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
