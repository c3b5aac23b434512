package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sjsage522/metaworker/internal/model"
)

func newCmdSources() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "sources [flags]",
		Short: "List the supported sources",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			f, err := newFactory(c.Context())
			if err != nil {
				return err
			}
			defer f.Close()

			sources := f.Engine.ListSupportedSources()
			if !validate {
				return printJSON(c.OutOrStdout(), sources)
			}

			type row struct {
				model.SourceInfo
				Validation model.ValidationResult `json:"validation"`
			}
			rows := make([]row, len(sources))
			invalid := 0
			for i, s := range sources {
				rows[i] = row{SourceInfo: s, Validation: f.Engine.ValidateAdapter(s.SourceID)}
				if !rows[i].Validation.IsValid {
					invalid++
				}
			}
			if err := printJSON(c.OutOrStdout(), rows); err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d source(s) failed validation", invalid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Validate every adapter")
	return cmd
}
