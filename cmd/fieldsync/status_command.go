package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldsync/internal/ipc"
	"fieldsync/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()

				if client == nil {
					// Daemon not running; report what the store can tell us.
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					if jsonOut {
						counts := make(map[string]int, len(stats))
						for k, v := range stats {
							counts[string(k)] = v
						}
						return writeJSON(cmd, map[string]any{"running": false, "queue_stats": counts})
					}
					fmt.Fprintln(out, "Daemon: not running")
					fmt.Fprintf(out, "Queue: %d pending, %d failed\n",
						stats[queue.StatusPending], stats[queue.StatusFailed])
					return nil
				}

				status, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, status)
				}

				fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
				fmt.Fprintf(out, "Network: %s\n", onlineLabel(status.Online))
				fmt.Fprintf(out, "Queue: %d pending, %d syncing, %d synced, %d failed\n",
					status.QueueStats["pending"],
					status.QueueStats["syncing"],
					status.QueueStats["synced"],
					status.QueueStats["failed"])

				sync := status.Sync
				switch {
				case sync.Active:
					fmt.Fprintf(out, "Sync: %s, %d/%d items", sync.State, sync.CompletedItems, sync.TotalItems)
					if sync.CurrentItem != "" {
						fmt.Fprintf(out, " (uploading %s)", sync.CurrentItem)
					}
					fmt.Fprintln(out)
				case sync.SessionID != "":
					fmt.Fprintf(out, "Sync: idle; last pass %d succeeded, %d failed at %s\n",
						sync.Succeeded, sync.Failed, formatTimestamp(sync.FinishedAt))
				default:
					fmt.Fprintln(out, "Sync: idle; no pass has run yet")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
