package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/tutorgraph-go/tutor"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's progress and pending decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the full snapshot as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.engine.GetState(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Session:  %s\n", snap.SessionID)
	fmt.Printf("Topic:    %s\n", snap.State.InitialTopic)
	fmt.Printf("Status:   %s\n", snap.Status)
	fmt.Printf("Phase:    %s\n", snap.State.Stage)

	if len(snap.State.LearningRoadmap) > 0 {
		fmt.Printf("Roadmap:  %d/%d topics\n", snap.State.CurrentTopicIndex, len(snap.State.LearningRoadmap))
		for i, topic := range snap.State.LearningRoadmap {
			marker := "  "
			switch {
			case i < snap.State.CurrentTopicIndex:
				marker = "✓ "
			case i == snap.State.CurrentTopicIndex && snap.Status != tutor.StatusCompleted:
				marker = "→ "
			}
			fmt.Printf("  %s%s\n", marker, topic)
		}
	}

	if snap.Interrupt != nil {
		fmt.Printf("Awaiting: %s (since %s)\n", snap.Interrupt.Kind,
			snap.Interrupt.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
