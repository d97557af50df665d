package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"meeting-assistant/internal/scheduling"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Start and control scheduling runs",
}

var (
	runMessage      string
	runTitle        string
	runParticipants string
	runDate         string
	runTime         string
	runDuration     int
	runMethods      string
	runWatch        bool
)

var scheduleStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a scheduling run from a message or form fields",
	Example: `  meetctl schedule start --message "安排面试官A和候选人B的面试"
  meetctl schedule start --title 周会 --participants 张三,李四 --date 2025-01-08 --time 14:00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := scheduling.StartRequest{ContactMethods: splitList(runMethods)}
		if runMessage != "" {
			req.Mode = scheduling.ModeNatural
			req.Message = runMessage
		} else {
			req.Mode = scheduling.ModeForm
			req.Form = &scheduling.FormInput{
				Title:        runTitle,
				Participants: scheduling.SplitParticipants(runParticipants),
				Date:         runDate,
				Time:         runTime,
				Duration:     runDuration,
			}
		}

		ctx, cancel := requestContext()
		snap, err := newClient().StartRun(ctx, req)
		cancel()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", snap.ID)
		if !runWatch {
			renderSteps(cmd.OutOrStdout(), *snap)
			return nil
		}
		return watchRun(cmd.OutOrStdout(), snap.ID)
	},
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the steps of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		snap, err := newClient().GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		renderSteps(cmd.OutOrStdout(), *snap)
		return nil
	},
}

var scheduleErrorCmd = &cobra.Command{
	Use:   "simulate-error <run-id> <step-index>",
	Short: "Force a step into the error state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("step index: %w", err)
		}
		ctx, cancel := requestContext()
		defer cancel()
		return newClient().SimulateError(ctx, args[0], index)
	},
}

var scheduleInterveneCmd = &cobra.Command{
	Use:   "intervene <run-id>",
	Short: "Confirm manual intervention after a failed step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		step, err := newClient().CompleteIntervention(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatStep(*step))
		return nil
	},
}

var scheduleReorderCmd = &cobra.Command{
	Use:   "reorder <run-id> <from> <to>",
	Short: "Move a contact method to a new priority",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		ctx, cancel := requestContext()
		defer cancel()

		methods, err := newClient().ReorderContactMethods(ctx, args[0], from, to)
		if err != nil {
			return err
		}
		for i, m := range methods {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, m.Name)
		}
		return nil
	},
}

func init() {
	f := scheduleStartCmd.Flags()
	f.StringVar(&runMessage, "message", "", "Natural language request")
	f.StringVar(&runTitle, "title", "", "Meeting title")
	f.StringVar(&runParticipants, "participants", "", "Participants, separated by commas")
	f.StringVar(&runDate, "date", "", "Date, YYYY-MM-DD")
	f.StringVar(&runTime, "time", "", "Start time, HH:MM")
	f.IntVar(&runDuration, "duration", 60, "Duration in minutes")
	f.StringVar(&runMethods, "methods", "", "Contact methods in priority order, e.g. im,email,sms,phone")
	f.BoolVar(&runWatch, "watch", true, "Follow the run until it finishes")

	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
	scheduleCmd.AddCommand(scheduleErrorCmd)
	scheduleCmd.AddCommand(scheduleInterveneCmd)
	scheduleCmd.AddCommand(scheduleReorderCmd)
}

// watchRun polls the run and prints every step change until it finishes.
func watchRun(out io.Writer, id string) error {
	client := newClient()
	seen := map[string]string{}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := requestContext()
		snap, err := client.GetRun(ctx, id)
		cancel()
		if err != nil {
			return err
		}
		for _, step := range snap.Steps {
			line := formatStep(step)
			if seen[step.ID] != line {
				seen[step.ID] = line
				fmt.Fprintln(out, line)
			}
		}
		if snap.State == scheduling.RunCompleted || snap.State == scheduling.RunFailed {
			fmt.Fprintf(out, "%s (%d%%)\n", snap.State, snap.Progress)
			return nil
		}
	}
	return nil
}

func renderSteps(out io.Writer, snap scheduling.Snapshot) {
	fmt.Fprintf(out, "%s  %s  %d%%\n", snap.Title, snap.State, snap.Progress)
	for _, step := range snap.Steps {
		fmt.Fprintln(out, formatStep(step))
	}
}

var statusIcons = map[scheduling.StepStatus]string{
	scheduling.StepPending:    "○",
	scheduling.StepInProgress: "◐",
	scheduling.StepCompleted:  "●",
	scheduling.StepError:      "✗",
}

func formatStep(step scheduling.Step) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s. %s", statusIcons[step.Status], step.ID, step.Message)
	if step.Details != "" {
		sb.WriteString(" - " + step.Details)
	}
	for _, m := range step.ContactMethods {
		fmt.Fprintf(&sb, "\n    [%s] %s", m.Status, m.Name)
		if m.Details != "" {
			sb.WriteString(" " + m.Details)
		}
	}
	return sb.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
