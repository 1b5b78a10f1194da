// Command tutor runs interactive tutoring sessions from the terminal.
//
// A session survives process exits: every suspension is checkpointed, so
// `tutor start` and a later `tutor resume` can happen in different
// invocations, on different days.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logEvents  bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Interactive AI tutoring sessions with durable checkpoints",
	Long: `Tutor runs a human-in-the-loop learning pipeline: it discovers the
prerequisites of a topic, asks which ones you already know, builds a
study roadmap, then researches and teaches each topic in order, pausing
for your review after every lesson.

Sessions are checkpointed at every pause. You can quit at any point and
pick up later with 'tutor resume'.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Absent .env is fine; real deployments use the environment.
		_ = godotenv.Load()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tutor.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&logEvents, "log-events", false, "mirror every session event to stderr")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
}
