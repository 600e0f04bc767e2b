package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/subtitles"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the active dubbing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.apiClient().Session(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if view == nil {
				fmt.Fprintln(out, "No active session.")
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			fmt.Fprint(out, renderSession(view))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw session JSON")
	return cmd
}

func renderSession(view *api.SessionView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s (created %s)\n", view.ID, view.CreatedAt.Format("2006-01-02 15:04:05"))
	if view.Transcript != "" {
		fmt.Fprintf(&b, "Transcript: %s\n", view.Transcript)
	}
	if len(view.Sentences) > 0 {
		cloned := make(map[int64]bool, len(view.ClonedAudios))
		for _, c := range view.ClonedAudios {
			cloned[c.SentenceID] = true
		}
		rows := make([][]string, 0, len(view.Sentences))
		for _, s := range view.Sentences {
			mark := ""
			if cloned[s.ID] {
				mark = "yes"
			}
			rows = append(rows, []string{
				strconv.FormatInt(s.ID, 10),
				subtitles.FormatTimestamp(s.BeginTime) + " - " + subtitles.FormatTimestamp(s.EndTime),
				s.Text,
				mark,
			})
		}
		b.WriteString(renderTable([]string{"#", "Timing", "Text", "Cloned"}, rows))
		b.WriteString("\n")
	}
	if view.Reference != nil {
		fmt.Fprintf(&b, "Reference voice: %s\n", view.Reference.Audio.OSSURL)
	}
	if view.MergedAudio != nil {
		fmt.Fprintf(&b, "Merged audio: %s\n", view.MergedAudio.OSSURL)
	}
	if view.SubtitleFile != nil {
		fmt.Fprintf(&b, "Subtitles: %s\n", view.SubtitleFile.OSSURL)
	}
	return b.String()
}
