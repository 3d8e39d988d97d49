package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"halyard/internal/transport"
	"halyard/internal/wire"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var service uint8
	var opcode uint8
	var payloadHex string
	var wantFD bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Issue one command round trip against the peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseHexPayload(payloadHex)
			if err != nil {
				return err
			}

			return ctx.withLink(cmd.Context(), nil, func(conn *transport.Conn) error {
				if service != wire.ServiceCore {
					if err := registerService(conn, service); err != nil {
						return err
					}
				}

				status, response, file, err := conn.Call(service, opcode, payload, wantFD)
				if err != nil {
					return err
				}
				if file != nil {
					defer file.Close()
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Status: %s\n", status)
				if status != wire.StatusSuccess {
					return nil
				}
				if len(response) > 0 {
					fmt.Fprintf(out, "Response: %s\n", hex.EncodeToString(response))
				} else {
					fmt.Fprintln(out, "Response: (empty)")
				}
				if wantFD {
					return reportDescriptor(out, file, outPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().Uint8Var(&service, "service", wire.ServiceAdapter, "Service identifier")
	cmd.Flags().Uint8Var(&opcode, "op", 0, "Operation code")
	cmd.Flags().StringVar(&payloadHex, "payload", "", "Request payload as hex bytes")
	cmd.Flags().BoolVar(&wantFD, "want-fd", false, "Harvest a passed descriptor from the response")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write received descriptor contents to this path")
	_ = cmd.MarkFlagRequired("op")

	return cmd
}

// registerService performs the core handshake so the peer will dispatch
// commands for the target service.
func registerService(conn *transport.Conn, service uint8) error {
	status, _, _, err := conn.Call(wire.ServiceCore, wire.OpCoreRegister, []byte{service}, false)
	if err != nil {
		return fmt.Errorf("register service 0x%02x: %w", service, err)
	}
	if status != wire.StatusSuccess {
		return fmt.Errorf("register service 0x%02x: peer answered %s", service, status)
	}
	return nil
}

func parseHexPayload(value string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' {
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	if cleaned == "" {
		return nil, nil
	}
	payload, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse payload %q: %w", value, err)
	}
	if len(payload) > wire.MaxPayload {
		return nil, fmt.Errorf("payload is %d bytes, maximum is %d", len(payload), wire.MaxPayload)
	}
	return payload, nil
}

func reportDescriptor(out io.Writer, file *os.File, outPath string) error {
	if file == nil {
		fmt.Fprintln(out, "Descriptor: none attached")
		return nil
	}
	if outPath == "" {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat received descriptor: %w", err)
		}
		fmt.Fprintf(out, "Descriptor: received (%d bytes)\n", info.Size())
		return nil
	}

	dst, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer dst.Close()
	n, err := io.Copy(dst, file)
	if err != nil {
		return fmt.Errorf("copy descriptor contents: %w", err)
	}
	fmt.Fprintf(out, "Descriptor: wrote %d bytes to %s\n", n, outPath)
	return nil
}
