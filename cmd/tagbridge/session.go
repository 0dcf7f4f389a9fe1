package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/tagbridge/internal/cli"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect persisted session snapshots",
	Long:  `List, inspect and remove the session snapshots a Redis-backed bridge keeps under redis.prefix.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List containers with a stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			ids, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No stored sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Stored sessions:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <container-id>",
	Short: "Print the snapshot of a container as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			snap, err := store.Load(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrSnapshotNotFound) {
				return fmt.Errorf("no snapshot for container %q", args[0])
			}
			if err != nil {
				return fmt.Errorf("load snapshot %q: %w", args[0], err)
			}

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <container-id>...",
	Short: "Remove one or more snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			var errs []error
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed snapshot '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

// withStore runs fn against the Redis snapshot store from the config,
// decrypting snapshots when an encryption key is set.
func withStore(cmd *cobra.Command, fn func(ports.SnapshotStore) error) error {
	cfg, _, _, err := setup(cmd)
	if err != nil {
		return err
	}
	client := cli.NewRedisClient(cfg.Redis)
	defer client.Close()

	store, err := cli.ProtectStore(cli.NewSnapshotStore(client, cfg.Redis), cfg.Snapshots)
	if err != nil {
		return err
	}
	return fn(store)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
