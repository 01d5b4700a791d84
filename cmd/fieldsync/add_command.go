package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fieldsync/internal/engine"
	"fieldsync/internal/gps"
	"fieldsync/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var activityType string
	var location string
	var notes string
	var tags []string
	var kindFlag string
	var latitude float64
	var longitude float64
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a captured photo or video for upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sourcePath, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			info, err := os.Stat(sourcePath)
			if err != nil {
				return fmt.Errorf("stat source file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("source path %q is a directory", sourcePath)
			}

			kind, err := resolveMediaKind(kindFlag, sourcePath)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			var provider gps.Provider
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				static := &gps.Static{}
				static.Set(gps.Fix{Latitude: latitude, Longitude: longitude})
				provider = static
			}

			// Capture has no orchestrator dependency; sync happens later.
			eng := engine.New(store, nil, provider, nil)

			payload, err := os.Open(sourcePath)
			if err != nil {
				return fmt.Errorf("open source file: %w", err)
			}
			defer payload.Close()

			item, err := eng.Enqueue(cmd.Context(), payload, engine.CaptureRequest{
				ProjectID:    projectID,
				ActivityType: activityType,
				Location:     location,
				Notes:        notes,
				Tags:         tags,
				MediaKind:    kind,
				SourceName:   filepath.Base(sourcePath),
				ContentType:  mime.TypeByExtension(filepath.Ext(sourcePath)),
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"id":        item.ID,
					"status":    string(item.Status),
					"sizeBytes": item.SizeBytes,
					"checksum":  item.Checksum,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item %d (%s, %s)\n",
				item.SourceName, item.ID, item.MediaKind, formatSize(item.SizeBytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project identifier (required)")
	cmd.Flags().StringVarP(&activityType, "activity", "a", "", "Activity type, e.g. concrete-pour")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Free-text location on site")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Free-text notes")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Media kind, photo or video (inferred from extension when omitted)")
	cmd.Flags().Float64Var(&latitude, "lat", 0, "Latitude to tag the item with")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "Longitude to tag the item with")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the queued item as JSON")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
	".mkv": {},
	".webm": {},
}

func resolveMediaKind(flag, sourcePath string) (queue.MediaKind, error) {
	if trimmed := strings.TrimSpace(flag); trimmed != "" {
		kind, ok := queue.ParseMediaKind(trimmed)
		if !ok {
			return "", fmt.Errorf("unknown media kind %q (expected photo or video)", trimmed)
		}
		return kind, nil
	}
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if _, ok := videoExtensions[ext]; ok {
		return queue.MediaVideo, nil
	}
	return queue.MediaPhoto, nil
}
