package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-client/internal/app"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/terminal"
	"golang.org/x/term"
)

func newTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <exam_id>",
		Short: "Take an exam with a live countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := loadConfig()

			deps, err := app.Wire(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			var rw io.ReadWriter = struct {
				io.Reader
				io.Writer
			}{os.Stdin, os.Stdout}

			fd := int(os.Stdin.Fd())
			if term.IsTerminal(fd) {
				state, err := term.MakeRaw(fd)
				if err != nil {
					return fmt.Errorf("enter raw mode: %w", err)
				}
				defer term.Restore(fd, state)
			}

			runner := terminal.NewRunner(rw, log)
			ctrl := session.New(deps.Backend, deps.Results, log, runner.Options()...)
			defer ctrl.Close()

			resultID, err := runner.Take(ctx, ctrl, args[0])
			if errors.Is(err, terminal.ErrAborted) {
				fmt.Fprintln(runner.Writer(), "Ujian ditinggalkan tanpa dikumpulkan.")
				return nil
			}
			if err != nil {
				return err
			}

			result, ok := ctrl.Result()
			if !ok {
				return fmt.Errorf("result %s not available", resultID)
			}
			title := ""
			if paper, ok := ctrl.Paper(); ok {
				title = paper.Title
			}
			if err := terminal.WriteResult(runner.Writer(), title, result); err != nil {
				return err
			}
			fmt.Fprintf(runner.Writer(), "Lihat pembahasan: exam-cli review %s\n", resultID)
			return nil
		},
	}
}
