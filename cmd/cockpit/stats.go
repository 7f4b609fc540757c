package main

import (
	"github.com/spf13/cobra"

	"cockpit/internal/content"
)

func statsCmd(load runtimeLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show content source statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			documents, err := rt.Docs.List()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Content   content.ContentStats `json:"content"`
				Documents []string             `json:"documents"`
			}{
				Content:   rt.Resolver.GetContentStats(cmd.Context()),
				Documents: documents,
			})
		},
	}
}
