package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/remote-agent-terminal/ttyclient/internal/config"
	"github.com/remote-agent-terminal/ttyclient/internal/db"
	"github.com/remote-agent-terminal/ttyclient/internal/model"
	"github.com/remote-agent-terminal/ttyclient/internal/repository"
)

const previewWidth = 40

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent connection attempts from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := config.LoadHistory(cmd.Flags())
			if err != nil {
				return err
			}

			return runHistory(cmd.Context(), h, cmd.OutOrStdout())
		},
	}

	config.RegisterHistoryFlags(cmd.Flags())

	return cmd
}

func runHistory(ctx context.Context, h *config.History, out io.Writer) error {
	if _, err := os.Stat(h.Journal); err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	database, err := db.Open(h.Journal)
	if err != nil {
		return err
	}
	defer database.Close()

	attempts, err := repository.NewAttemptRepository(database).List(ctx, h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(attempts)
	}

	return printAttempts(out, attempts, time.Now())
}

func printAttempts(out io.Writer, attempts []*model.Attempt, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTEMPT\tSTARTED\tSTATE\tCONNECTED\tRECONNECT\tREASON\tPREVIEW")

	for _, a := range attempts {
		connected := "-"
		if a.Connected() {
			connected = a.Duration(now).Round(time.Second).String()
		}

		reconnect := "off"
		if a.ReconnectDelay > 0 {
			reconnect = a.ReconnectDelay.String()
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Attempt,
			a.StartedAt.Local().Format(time.DateTime),
			a.State,
			connected,
			reconnect,
			orDash(a.CloseReason),
			orDash(truncate(a.PreviewLine, previewWidth)),
		)
	}

	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
