// @title           Todo API
// @version         1.0
// @description     Per-user todo lists with lifecycle transitions, rate limiting and cached reads.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey CookieAuth
// @in              cookie
// @name            session_id

// Package main implements the todo CLI: the HTTP server plus operator commands.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "todo",
	Short:        "Todo API server and tooling",
	SilenceUsage: true,
}

// setFlagAliases lets old or short flag spellings resolve to their canonical name.
func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}
