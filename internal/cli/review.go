package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/app"
	"github.com/stemsi/exstem-client/internal/review"
	"github.com/stemsi/exstem-client/internal/terminal"
)

func newReviewCmd() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "review <result_id>",
		Short: "Review a submitted attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := loadConfig()

			deps, err := app.Wire(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			rv, err := review.NewService(deps.Backend, deps.Results, log).Load(ctx, args[0])
			if err != nil {
				return err
			}
			return terminal.WriteReview(os.Stdout, rv, showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "show every question, not only the missed ones")
	return cmd
}
