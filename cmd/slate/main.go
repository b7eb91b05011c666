package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"slate/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "slate",
	Short: "Slate language compiler",
	Long:  `Slate is a small systems language; this tool compiles it to backend IR`,
}

// main initializes the CLI by setting the command version, registering
// subcommands and persistent flags, and then executes the root command.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(irCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("address-size", 0, "address size in bits (8|16|32|64), overrides slate.toml")
	rootCmd.PersistentFlags().Int("default-int-size", 0, "default integer size in bits (8|16|32|64), overrides slate.toml")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the stream.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(f)
}
