package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/renderers/tui"
	"github.com/goliatone/go-autoquote/pkg/vinfill"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

var promptFlags struct {
	format      string
	output      string
	maxAttempts int
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Fill in a quote in the terminal",
	Long: `Walk the quote wizard in the terminal and print the flattened quote.

The quote is also handed to the configured submitter, so quote events are
published exactly as they are for the web wizard.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringVarP(&promptFlags.format, "format", "f", string(tui.OutputFormatJSON), "Output format: json, form or pretty")
	promptCmd.Flags().StringVarP(&promptFlags.output, "output", "o", "", "Write the quote to a file instead of stdout")
	promptCmd.Flags().IntVar(&promptFlags.maxAttempts, "max-attempts", 3, "Re-prompts allowed per step, 0 for unlimited")
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	switch tui.OutputFormat(promptFlags.format) {
	case tui.OutputFormatJSON, tui.OutputFormatFormURLEncoded, tui.OutputFormatPrettyText:
	default:
		return fmt.Errorf("unknown format %q", promptFlags.format)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	submitter, err := a.submitter()
	if err != nil {
		return err
	}

	def, err := wizard.DefaultDefinition()
	if err != nil {
		return err
	}
	years := cascade.YearOptions(nowFunc(), a.cfg.MinYear)
	seq := wizard.NewSequencer(def, wizard.WithYears(years), wizard.WithLogger(a.logger))

	runner := tui.New(seq, a.cache,
		tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
		tui.WithOutputFormat(tui.OutputFormat(promptFlags.format)),
		tui.WithSelectorOptions(cascade.WithYears(years)),
		tui.WithFiller(vinfill.New(a.client, vinfill.WithLogger(a.logger))),
		tui.WithSubmitter(submitter),
		tui.WithMaxAttempts(promptFlags.maxAttempts),
		tui.WithLogger(a.logger),
	)

	out, err := runner.Run(cmd.Context())
	if errors.Is(err, tui.ErrAborted) {
		fmt.Fprintln(cmd.ErrOrStderr(), "quote abandoned")
		return nil
	}
	if err != nil {
		return err
	}

	if promptFlags.output != "" {
		if err := os.WriteFile(promptFlags.output, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", promptFlags.output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "quote written to %s\n", promptFlags.output)
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
