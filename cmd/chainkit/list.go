package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/examples"
	"github.com/germanamz/chainkit/cmd/chainkit/internal/styles"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][2]string, 0, len(examples.All()))
			for _, ex := range examples.All() {
				rows = append(rows, [2]string{strconv.Itoa(ex.Number) + ". " + ex.Name, ex.Title + ": " + ex.Desc})
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), styles.Columns(rows))
			return err
		},
	}
}
