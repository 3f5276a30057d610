// Package main is the entry point for the contextify service and CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

const (
	appName  = "contextify"
	appShort = "contextify enriches logs with process context and forwards notable events"
	appLong  = `contextify collects context from a set of providers (process id,
	hostname, caller, memory usage and more), attaches it to every log line
	under "extra" and forwards log events and exceptions to mail and Telegram.

	Configuration is read from configs/base.yaml, configs/<profile>.yaml and
	APP_ prefixed environment variables, in increasing precedence.`

	profileFlagName  = "profile"
	profileEnvName   = "APP_ENVIRONMENT"
	profileFlagUsage = "configuration profile to load on top of configs/base.yaml"

	versionCmdName = "version"
)

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	profile string
}

// addFlags registers the persistent CLI flags on cmd.
func (f *rootFlags) addFlags(cmd *cobra.Command) {
	profile := os.Getenv(profileEnvName)
	if profile == "" {
		profile = "local"
	}

	cmd.PersistentFlags().StringVar(&f.profile, profileFlagName, profile, heredoc.Doc(profileFlagUsage))
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootCmd constructs the root Cobra command with shared configuration.
func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
	}

	flags.addFlags(cmd)
	cmd.AddCommand(
		serveCmd(flags),
		contextCmd(flags),
		versionCmd(),
	)

	return cmd
}

// versionCmd constructs the Cobra command that prints version information.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: "Display the " + appName + " version",

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, Commit, BuildTime, runtime.Version()))
		},
	}
}

// versionString formats the version metadata for display.
func versionString(version, commit, buildTime, goVersion string) string {
	out := version
	if commit != "" && commit != "unknown" {
		out += " (" + commit + ")"
	}

	if buildTime != "" && buildTime != "unknown" {
		out += " built " + buildTime
	}

	return out + ", Go Version: " + goVersion
}
