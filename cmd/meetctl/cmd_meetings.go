package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"meeting-assistant/internal/apiclient"
	"meeting-assistant/internal/models"
	"meeting-assistant/internal/scheduling"
	pkgmodels "meeting-assistant/pkg/models"

	"github.com/spf13/cobra"
)

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "List and create meetings",
}

var meetingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show upcoming and past meetings",
	RunE: func(cmd *cobra.Command, args []string) error {
		list := apiclient.NewMeetingList(newClient())
		return loadWithRetry(list, bufio.NewReader(os.Stdin), cmd.OutOrStdout())
	},
}

var (
	meetingTitle        string
	meetingParticipants string
	meetingDate         string
	meetingTime         string
	meetingDuration     int
	meetingLocation     string
	meetingDescription  string
)

var meetingsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a meeting directly",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()

		m, err := newClient().CreateMeeting(ctx, pkgmodels.MeetingRequest{
			Title:        meetingTitle,
			Participants: scheduling.SplitParticipants(meetingParticipants),
			Date:         meetingDate,
			Time:         meetingTime,
			Duration:     meetingDuration,
			Location:     meetingLocation,
			Description:  meetingDescription,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已创建会议 %s\n", m.ID)
		fmt.Fprintln(cmd.OutOrStdout(), formatMeeting(*m))
		return nil
	},
}

func init() {
	f := meetingsCreateCmd.Flags()
	f.StringVar(&meetingTitle, "title", "", "Meeting title")
	f.StringVar(&meetingParticipants, "participants", "", "Participants, separated by commas")
	f.StringVar(&meetingDate, "date", "", "Date, YYYY-MM-DD")
	f.StringVar(&meetingTime, "time", "", "Start time, HH:MM")
	f.IntVar(&meetingDuration, "duration", 60, "Duration in minutes")
	f.StringVar(&meetingLocation, "location", "", "Location")
	f.StringVar(&meetingDescription, "description", "", "Description")
	meetingsCreateCmd.MarkFlagRequired("title")
	meetingsCreateCmd.MarkFlagRequired("participants")

	meetingsCmd.AddCommand(meetingsListCmd)
	meetingsCmd.AddCommand(meetingsCreateCmd)
}

// loadWithRetry loads the list and, on failure, offers a manual retry
// until the user declines.
func loadWithRetry(list *apiclient.MeetingList, in *bufio.Reader, out io.Writer) error {
	for {
		ctx, cancel := requestContext()
		err := list.Load(ctx)
		cancel()
		if err == nil {
			renderMeetings(out, list)
			return nil
		}

		fmt.Fprintln(out, list.Error())
		fmt.Fprint(out, "重试? [y/N] ")
		answer, _ := in.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return err
		}
	}
}

func renderMeetings(out io.Writer, list *apiclient.MeetingList) {
	fmt.Fprintln(out, "即将进行的会议")
	upcoming := list.Upcoming()
	if len(upcoming) == 0 {
		fmt.Fprintln(out, "  (无)")
	}
	for _, m := range upcoming {
		fmt.Fprintln(out, "  "+formatMeeting(m))
	}

	fmt.Fprintln(out, "已结束的会议")
	past := list.Past()
	if len(past) == 0 {
		fmt.Fprintln(out, "  (无)")
	}
	for _, m := range past {
		fmt.Fprintln(out, "  "+formatMeeting(m))
	}
}

func formatMeeting(m models.Meeting) string {
	when := strings.TrimSpace(m.Date + " " + m.Time)
	if when == "" {
		when = "时间待定"
	}
	return fmt.Sprintf("%s  %s  %s", when, m.Title, strings.Join(m.Participants, "、"))
}
