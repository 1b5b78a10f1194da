package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/tutorgraph-go/tutor"
)

var (
	resumeAction   string
	resumeQuestion string
	resumeKnown    []string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a suspended session",
	Long: `Resume picks up a session at its pending decision point. Without
flags it shows the pending interrupt and prompts interactively; with
--action it applies one decision non-interactively and then continues
the conversation.`,
	Example: `  tutor resume my-nn-session
  tutor resume my-nn-session --action continue
  tutor resume my-nn-session --action ask_question --question "Why ReLU?"
  tutor resume my-nn-session --action select_prerequisites --known "Calculus"`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeAction, "action", "", "resume action (continue, ask_question, regenerate, select_prerequisites)")
	resumeCmd.Flags().StringVar(&resumeQuestion, "question", "", "question text for ask_question")
	resumeCmd.Flags().StringSliceVar(&resumeKnown, "known", nil, "already-known prerequisites for select_prerequisites")
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := args[0]

	if resumeAction == "" {
		// Interactive: fake an already-drained stream by resuming through
		// the same conversation loop used by start.
		snap, err := a.engine.GetState(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		if snap.Status != tutor.StatusSuspended {
			return fmt.Errorf("session %s is %s, nothing to resume", sessionID, snap.Status)
		}
		if lesson, ok := snap.Interrupt.Payload["lesson"].(string); ok && lesson != "" {
			fmt.Printf("%s\n", lesson)
		}
		// An already-closed stream drops converse straight into the
		// prompt for the still-pending interrupt.
		return converse(cmd.Context(), a, sessionID, newClosedStream())
	}

	resp := tutor.Response{
		Action:                tutor.Action(resumeAction),
		Question:              resumeQuestion,
		SelectedPrerequisites: resumeKnown,
	}
	stream, err := a.engine.Resume(cmd.Context(), sessionID, resp)
	if err != nil {
		return err
	}
	return converse(cmd.Context(), a, sessionID, stream)
}
