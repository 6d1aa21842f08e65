// Package cmd provides the command-line interface for the best-fit memory
// allocation simulator.
package cmd

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "bestfitsim",
	Short: "Bestfitsim simulates a best-fit dynamic memory allocator " +
		"for teaching allocation and fragmentation behavior.",
	Long: `Bestfitsim simulates a best-fit dynamic memory allocator over a ` +
		`fixed-size address space. It can serve an interactive web UI that ` +
		`visualizes the block sequence, or replay an operation script on ` +
		`the command line.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A missing .env file is fine; flags and built-in defaults apply.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// intFromEnv returns the integer value of the environment variable, or the
// fallback when the variable is unset or not an integer.
func intFromEnv(name string, fallback int) int {
	value, exists := os.LookupEnv(name)
	if !exists {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}
