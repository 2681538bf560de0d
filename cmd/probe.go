package cmd

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/smazurov/ffrun/internal/ffmpeg"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var binary string

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the duration and streams of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			result, err := ffmpeg.FFprobe{Binary: binary}.Probe(c.Context(), args[0])
			if err != nil {
				code := ExitFailure
				if isNotFound(err) {
					code = ExitNotFound
				}
				return &ExitError{Code: code, Err: err}
			}

			out := c.OutOrStdout()
			if ms, durErr := result.DurationMs(); durErr == nil {
				fmt.Fprintf(out, "duration_ms: %d\n", ms)
			} else {
				fmt.Fprintf(out, "duration_ms: unknown (%v)\n", durErr)
			}
			if result.Format.FormatName != "" {
				fmt.Fprintf(out, "format: %s\n", result.Format.FormatName)
			}
			if len(result.Streams) > 0 {
				fmt.Fprintln(out, renderStreams(result.Streams))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&binary, "probe-binary", "ffprobe", "ffprobe executable")
	return cmd
}

func renderStreams(streams []ffmpeg.Stream) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Type", "Codec", "Details"})
	for _, s := range streams {
		tw.AppendRow(table.Row{strconv.Itoa(s.Index), s.CodecType, s.CodecName, streamDetails(s)})
	}
	return tw.Render()
}

func streamDetails(s ffmpeg.Stream) string {
	switch s.CodecType {
	case "video":
		if s.Width > 0 && s.Height > 0 {
			return fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
	case "audio":
		if s.SampleRate != "" {
			return fmt.Sprintf("%s Hz, %d ch", s.SampleRate, s.Channels)
		}
	}
	return ""
}
