package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect the simulated participants",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		users, err := newClient().GetMockUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s %-10s %-16s %s\n", u.ID, u.Name, u.Role, u.Email)
		}
		return nil
	},
}

var usersScheduleCmd = &cobra.Command{
	Use:   "schedule <user-id>",
	Short: "Show a participant's free slots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		slots, err := newClient().GetUserSchedule(ctx, args[0])
		if err != nil {
			return err
		}
		for _, s := range slots {
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s\n", s.Start.Format("2006-01-02 15:04"), s.End.Format("15:04"))
		}
		return nil
	},
}

var usersConversationCmd = &cobra.Command{
	Use:   "conversation <user-id>",
	Short: "Show the coordination conversation with a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		msgs, err := newClient().GetConversationHistory(ctx, args[0])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Role, m.Content)
		}
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersScheduleCmd)
	usersCmd.AddCommand(usersConversationCmd)
}
