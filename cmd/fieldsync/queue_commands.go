package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"fieldsync/internal/api"
	"fieldsync/internal/ipc"
	"fieldsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the capture queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearSyncedCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued media items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				items, err := fetchQueueItems(cmd, client, store, listStatuses)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.QueueListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.SourceName,
						item.ProjectID,
						item.MediaKind,
						colorStatus(item.Status, colorize),
						strconv.Itoa(item.Attempts),
						formatSize(item.SizeBytes),
						formatTimestamp(item.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "File", "Project", "Kind", "Status", "Attempts", "Size", "Captured"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit items as JSON")
	return cmd
}

func fetchQueueItems(cmd *cobra.Command, client *ipc.Client, store *queue.Store, statuses []string) ([]api.QueueItem, error) {
	if client != nil {
		resp, err := client.QueueList(statuses)
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	}

	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	svc, err := api.NewQueueService(store)
	if err != nil {
		return nil, err
	}
	return svc.List(cmd.Context(), filters...)
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				counts := map[string]int{}
				if client != nil {
					resp, err := client.QueueStats()
					if err != nil {
						return err
					}
					counts = resp.Counts
				} else {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range stats {
						counts[string(status)] = count
					}
				}

				if jsonOut {
					return writeJSON(cmd, api.QueueStatsResponse{Counts: counts})
				}
				if len(counts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				names := make([]string, 0, len(counts))
				for name := range counts {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name, strconv.Itoa(counts[name])})
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit counts as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Reset failed items for another sync attempt",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				if client != nil {
					resp, err := client.QueueRetry(ids)
					if err != nil {
						return err
					}
					updated = resp.Updated
				} else {
					updated, err = store.RetryFailed(cmd.Context(), ids...)
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <itemID...>",
		Short: "Remove items and their local payload files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.QueueRemove(ids)
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					for _, id := range ids {
						ok, err := store.Remove(cmd.Context(), id)
						if err != nil {
							return err
						}
						if ok {
							removed++
						}
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearSyncedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-synced",
		Short: "Remove delivered items and reclaim local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				var err error
				if client != nil {
					resp, respErr := client.QueueClearSynced()
					if respErr != nil {
						return respErr
					}
					removed = resp.Removed
				} else {
					removed, err = store.ClearSynced(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d synced items\n", removed)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue and database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var summary queue.HealthSummary
				var db queue.DatabaseHealth
				var err error
				if client != nil {
					healthResp, healthErr := client.QueueHealth()
					if healthErr != nil {
						return healthErr
					}
					summary = queue.HealthSummary{
						Total:   healthResp.Total,
						Pending: healthResp.Pending,
						Syncing: healthResp.Syncing,
						Synced:  healthResp.Synced,
						Failed:  healthResp.Failed,
					}
					dbResp, dbErr := client.DatabaseHealth()
					if dbErr != nil {
						return dbErr
					}
					db = queue.DatabaseHealth{
						DBPath:           dbResp.DBPath,
						DatabaseExists:   dbResp.DatabaseExists,
						DatabaseReadable: dbResp.DatabaseReadable,
						SchemaVersion:    dbResp.SchemaVersion,
						TableExists:      dbResp.TableExists,
						MissingColumns:   dbResp.MissingColumns,
						IntegrityCheck:   dbResp.IntegrityCheck,
						TotalItems:       dbResp.TotalItems,
						Error:            dbResp.Error,
					}
				} else {
					summary, err = store.Health(cmd.Context())
					if err != nil {
						return err
					}
					db, err = store.CheckHealth(cmd.Context())
					if err != nil && db.Error == "" {
						return err
					}
				}

				if jsonOut {
					return writeJSON(cmd, map[string]any{"queue": summary, "database": db})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d\nPending: %d\nSyncing: %d\nSynced: %d\nFailed: %d\n",
					summary.Total, summary.Pending, summary.Syncing, summary.Synced, summary.Failed)
				fmt.Fprintf(out, "Database: %s\n", db.DBPath)
				fmt.Fprintf(out, "  readable: %s  schema: %s  integrity: %s\n",
					yesNo(db.DatabaseReadable), db.SchemaVersion, yesNo(db.IntegrityCheck))
				if len(db.MissingColumns) > 0 {
					fmt.Fprintf(out, "  missing columns: %v\n", db.MissingColumns)
				}
				if db.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", db.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit diagnostics as JSON")
	return cmd
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
