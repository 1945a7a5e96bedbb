package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/backend"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the exams in the fixture catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			if !cfg.UseFixture() {
				return errors.New("list needs a fixture catalog; the exam backend has no listing endpoint")
			}
			f, err := backend.LoadFixture(cfg.FixturePath)
			if err != nil {
				return err
			}
			for _, id := range f.ExamIDs() {
				exam, err := f.FetchExamByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-30s %3d soal %3d menit\n",
					exam.ID, exam.Title, exam.QuestionCount(), exam.DurationMinutes)
			}
			return nil
		},
	}
}
