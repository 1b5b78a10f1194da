package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/emit"
)

// converse drains a session stream, and while the session keeps suspending,
// prompts on stdin and resumes, until the session completes or fails.
func converse(ctx context.Context, a *app, sessionID string, stream *emit.Stream) error {
	in := bufio.NewScanner(os.Stdin)

	for {
		drainStream(stream)

		snap, err := a.engine.GetState(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("read session state: %w", err)
		}

		switch snap.Status {
		case tutor.StatusCompleted:
			printCompletion(snap)
			return nil
		case tutor.StatusFailed:
			return fmt.Errorf("session %s failed; checkpoint preserved for inspection", sessionID)
		case tutor.StatusSuspended:
			resp, err := promptResponse(in, snap.Interrupt)
			if err != nil {
				return err
			}
			stream, err = a.engine.Resume(ctx, sessionID, resp)
			if err != nil {
				return fmt.Errorf("resume: %w", err)
			}
		default:
			return fmt.Errorf("session %s in unexpected status %s", sessionID, snap.Status)
		}
	}
}

// newClosedStream yields an empty, already-closed stream.
func newClosedStream() *emit.Stream {
	s := emit.NewStream(1)
	s.Close()
	return s
}

// drainStream renders events as they arrive: tokens inline, stage
// transitions as headers.
func drainStream(stream *emit.Stream) {
	streaming := false
	for event := range stream.Events() {
		switch event.Type {
		case emit.TypeToken:
			if payload, ok := event.Payload.(emit.Token); ok {
				fmt.Print(payload.Content)
				streaming = true
			}
		case emit.TypeStageComplete:
			if streaming {
				fmt.Println()
				streaming = false
			}
			fmt.Printf("\n--- %s ---\n", event.Stage)
		case emit.TypeError:
			if streaming {
				fmt.Println()
				streaming = false
			}
			if payload, ok := event.Payload.(emit.ErrorInfo); ok {
				fmt.Fprintf(os.Stderr, "\nerror in %s: %s\n", event.Stage, payload.Message)
			}
		}
	}
	if streaming {
		fmt.Println()
	}
}

// promptResponse renders the pending interrupt and reads the decision.
func promptResponse(in *bufio.Scanner, pending *tutor.Interrupt) (tutor.Response, error) {
	if pending == nil {
		return tutor.Response{}, errors.New("session suspended without an interrupt")
	}

	switch pending.Kind {
	case tutor.InterruptPrerequisiteSelection:
		return promptSelection(in, pending)
	case tutor.InterruptTopicReview:
		return promptReview(in, pending)
	default:
		return tutor.Response{}, fmt.Errorf("unknown interrupt kind %q", pending.Kind)
	}
}

func promptSelection(in *bufio.Scanner, pending *tutor.Interrupt) (tutor.Response, error) {
	prereqs := payloadStrings(pending.Payload["prerequisites"])

	fmt.Println("\nPrerequisites identified:")
	for i, p := range prereqs {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	fmt.Print("\nWhich do you already know? (numbers, comma-separated, or blank for none): ")

	line, err := readLine(in)
	if err != nil {
		return tutor.Response{}, err
	}

	var selected []string
	for _, field := range strings.Split(line, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(prereqs) {
			fmt.Printf("ignoring %q: not a listed number\n", field)
			continue
		}
		selected = append(selected, prereqs[n-1])
	}

	return tutor.Response{
		Action:                tutor.ActionSelectPrerequisites,
		SelectedPrerequisites: selected,
	}, nil
}

func promptReview(in *bufio.Scanner, pending *tutor.Interrupt) (tutor.Response, error) {
	if answer, ok := pending.Payload["answer"].(string); ok && answer != "" {
		fmt.Printf("\nAnswer:\n%s\n", answer)
	}

	for {
		fmt.Print("\n[c]ontinue, ask a [q]uestion, or [r]egenerate the lesson? ")
		line, err := readLine(in)
		if err != nil {
			return tutor.Response{}, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "c", "continue":
			return tutor.Response{Action: tutor.ActionContinue}, nil
		case "r", "regenerate":
			return tutor.Response{Action: tutor.ActionRegenerate}, nil
		case "q", "question":
			fmt.Print("Your question: ")
			question, err := readLine(in)
			if err != nil {
				return tutor.Response{}, err
			}
			if strings.TrimSpace(question) == "" {
				fmt.Println("A question cannot be empty.")
				continue
			}
			return tutor.Response{Action: tutor.ActionAskQuestion, Question: question}, nil
		default:
			fmt.Println("Please answer c, q, or r.")
		}
	}
}

func readLine(in *bufio.Scanner) (string, error) {
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", errors.New("input closed")
	}
	return in.Text(), nil
}

func printCompletion(snap tutor.Snapshot) {
	fmt.Printf("\nSession %s complete: %d topics covered, %d questions answered.\n",
		snap.SessionID, len(snap.State.LessonHistory), len(snap.State.QuestionsAsked))
	if snap.State.SessionSummary != "" {
		fmt.Printf("\n%s\n", snap.State.SessionSummary)
	}
}

// payloadStrings converts an interrupt payload list, which may have been
// through a JSON round-trip ([]any) or not ([]string).
func payloadStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
