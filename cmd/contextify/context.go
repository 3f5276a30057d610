package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
)

const (
	contextCmdShort = "print the context collected by the configured providers"
	contextCmdLong  = `Print the context collected by the configured providers.

	Without arguments both the "log" and the "notification" groups are
	printed. With --output log a single log line is written the way the
	service would write it, with the "log" group under "extra".`

	contextCmdExample = `# Inspect both groups as JSON
	contextify context

	# Only the notification group, with the prod profile
	contextify context notification --profile prod

	# Show what a log line carries
	contextify context --output log`

	outputFlagName = "output"
	outputJSON     = "json"
	outputLog      = "log"
)

var contextGroups = []string{logctx.GroupLog, logctx.GroupNotification}

// contextFlags holds the flags of the context command.
type contextFlags struct {
	output string
}

// contextCmd returns the Cobra command that prints collected context.
func contextCmd(root *rootFlags) *cobra.Command {
	flags := &contextFlags{}

	cmd := &cobra.Command{
		Use:     "context [log|notification]",
		Short:   heredoc.Doc(contextCmdShort),
		Long:    heredoc.Doc(contextCmdLong),
		Example: heredoc.Doc(contextCmdExample),

		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: contextGroups,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains([]string{outputJSON, outputLog}, flags.output) {
				return fmt.Errorf("unknown output %q: use %s or %s", flags.output, outputJSON, outputLog)
			}

			cfg, err := loadConfig(root.profile)
			if err != nil {
				return err
			}

			c, err := wire(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = c.close(context.WithoutCancel(cmd.Context())) }()

			if err := c.manager.UpdateDynamicContext(); err != nil {
				return fmt.Errorf("computing dynamic context: %w", err)
			}

			if flags.output == outputLog {
				writeLogLine(cmd.OutOrStdout(), c.manager)
				return nil
			}

			groups := contextGroups
			if len(args) == 1 {
				groups = args
			}

			return writeGroups(cmd.OutOrStdout(), c.manager, groups)
		},
	}

	cmd.Flags().StringVarP(&flags.output, outputFlagName, "o", outputJSON, "output format: json or log")

	return cmd
}

// writeGroups prints the context of each group as one indented JSON object
// keyed by group name.
func writeGroups(w io.Writer, source logctx.ContextSource, groups []string) error {
	out := make(map[string]logctx.Map, len(groups))
	for _, group := range groups {
		out[group] = source.GetContext(group)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}

	return nil
}

// writeLogLine emits one zerolog line enriched with the "log" group.
func writeLogLine(w io.Writer, source logctx.ContextSource) {
	logger := zerolog.New(w).Hook(logctx.NewZerologHook(source)).With().Timestamp().Logger()
	logger.Info().Msg("context snapshot")
}
