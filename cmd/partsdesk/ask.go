package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/manthysbr/partsdesk/internal/config"
	"github.com/manthysbr/partsdesk/internal/core/domain"
)

var (
	askSession   string
	askRaw       bool
	askReasoning bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask a single question and print the answer",
	Example: `  partsdesk ask "How can I install part number PS11752778?"
  partsdesk ask --session s1 "Is it compatible with my WDT780SAEM1 model?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id; context persists across runs when redis is configured")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "print plain markdown instead of rendering it")
	askCmd.Flags().BoolVar(&askReasoning, "reasoning", false, "also print the reasoning log")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, out io.Writer, message string) error {
	logger := newConsoleLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, logger, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.chat.Chat(ctx, askSession, message)
	if err != nil {
		return err
	}

	md := res.Response
	if askReasoning {
		md += "\n\n---\n\n" + formatReasoning(res.Reasoning)
	}
	if askRaw {
		_, err = fmt.Fprintln(out, md)
		return err
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to init renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render answer: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func formatReasoning(steps []domain.ReasoningStep) string {
	var b strings.Builder
	b.WriteString("**Reasoning**\n\n")
	for _, s := range steps {
		fmt.Fprintf(&b, "%d. _%s_: %s", s.Index, s.Type, s.Content)
		if s.Tool != "" {
			fmt.Fprintf(&b, " (`%s`)", s.Tool)
		}
		b.WriteString("\n")
	}
	return b.String()
}
