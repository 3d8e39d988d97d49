package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"halyard/internal/logging"
	"halyard/internal/trace"
	"halyard/internal/wire"
)

func newTraceCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List recorded link traffic, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Trace.Enabled {
				return fmt.Errorf("tracing is disabled; enable it under [trace] in the configuration")
			}

			store, err := trace.Open(cfg.Trace.DBPath, logging.NewNop())
			if err != nil {
				return fmt.Errorf("open trace store: %w", err)
			}
			defer store.Close()

			rows, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list trace rows: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No recorded messages")
				return nil
			}

			rendered := make([][]string, 0, len(rows))
			for _, row := range rows {
				rendered = append(rendered, []string{
					strconv.FormatInt(row.ID, 10),
					row.At.Format("2006-01-02 15:04:05.000"),
					shortLinkID(row.LinkID),
					row.Direction,
					row.Channel,
					fmt.Sprintf("0x%02x", row.Service),
					fmt.Sprintf("0x%02x", row.Opcode),
					strconv.Itoa(row.PayloadLen),
					wire.Status(row.Status).String(),
					boolMark(row.HasFD),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "TIME", "LINK", "DIR", "CHANNEL", "SERVICE", "OPCODE", "BYTES", "STATUS", "FD"},
				rendered,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of rows to show")
	return cmd
}

func shortLinkID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func boolMark(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
