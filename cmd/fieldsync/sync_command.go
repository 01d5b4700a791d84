package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fieldsync/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger a sync pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncNow()
				if err != nil {
					return err
				}
				snap := resp.Sync

				if wait {
					for snap.Active {
						time.Sleep(500 * time.Millisecond)
						status, err := client.Status()
						if err != nil {
							return err
						}
						snap = status.Sync
					}
				}

				if jsonOut {
					return writeJSON(cmd, snap)
				}

				out := cmd.OutOrStdout()
				if snap.TotalItems == 0 && !snap.Active {
					fmt.Fprintln(out, "Nothing to sync")
					return nil
				}
				if snap.Active {
					fmt.Fprintf(out, "Sync pass %s running: %d/%d items\n",
						snap.SessionID, snap.CompletedItems, snap.TotalItems)
					return nil
				}
				fmt.Fprintf(out, "Sync pass finished: %d succeeded, %d failed, %d skipped of %d\n",
					snap.Succeeded, snap.Failed, snap.Skipped, snap.TotalItems)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Block until the pass finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the pass snapshot as JSON")
	return cmd
}
