package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"halyard/internal/transport"
)

func newMonitorCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Bring the link up and print incoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			events := make(chan transport.Event, 16)

			return ctx.withLink(runCtx, func(evt transport.Event) {
				select {
				case events <- evt:
				case <-runCtx.Done():
				}
			}, func(conn *transport.Conn) error {
				fmt.Fprintf(out, "Monitoring link %s (interrupt to stop)\n", conn.ID())

				var rows [][]string
				received := 0
			collect:
				for count <= 0 || received < count {
					select {
					case evt := <-events:
						received++
						rows = append(rows, describeEvent(received, evt))
						printEventLine(out, received, evt, colorize)
						if evt.File != nil {
							_ = evt.File.Close()
						}
					case <-runCtx.Done():
						break collect
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"#", "TIME", "SERVICE", "OPCODE", "BYTES", "FD"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
					))
				}
				fmt.Fprintf(out, "Received %d event(s)\n", received)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many events (0 waits for interrupt)")
	return cmd
}

func describeEvent(seq int, evt transport.Event) []string {
	fd := "-"
	if evt.File != nil {
		fd = "yes"
	}
	return []string{
		strconv.Itoa(seq),
		time.Now().Format("15:04:05.000"),
		fmt.Sprintf("0x%02x", evt.Service),
		fmt.Sprintf("0x%02x", evt.Opcode),
		strconv.Itoa(len(evt.Payload)),
		fd,
	}
}

func printEventLine(out io.Writer, seq int, evt transport.Event, colorize bool) {
	label := fmt.Sprintf("event %d: service=0x%02x opcode=0x%02x", seq, evt.Service, evt.Opcode)
	if colorize {
		label = ansiBlue + label + ansiReset
	}
	if len(evt.Payload) > 0 {
		fmt.Fprintf(out, "%s payload=%s\n", label, hex.EncodeToString(evt.Payload))
	} else {
		fmt.Fprintf(out, "%s\n", label)
	}
}
