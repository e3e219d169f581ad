package main

import (
	"github.com/spf13/cobra"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/examples"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "run [example...]",
		Short:     "Run selected examples (all when none are named)",
		ValidArgs: examples.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := examples.All()
			if len(args) > 0 {
				var err error
				if list, err = examples.Find(args); err != nil {
					return err
				}
			}
			return runExamples(cmd, opts, list)
		},
	}
}
