package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var startSession string

var startCmd = &cobra.Command{
	Use:   "start <topic>",
	Short: "Start a new tutoring session on a topic",
	Example: `  tutor start "Neural Networks"
  tutor start --session my-nn-session "Neural Networks"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startSession, "session", "", "session id (default: random)")
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := startSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	topic := strings.Join(args, " ")

	fmt.Printf("Starting session %s: %s\n", sessionID, topic)
	stream, err := a.engine.Start(cmd.Context(), sessionID, topic)
	if err != nil {
		return err
	}
	return converse(cmd.Context(), a, sessionID, stream)
}
