package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/ui"
)

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear saved progress",
	Long: `Active runs periodically save their cursor and collected followers, and
save once more when they stop early. A later run for the same user id resumes from there. Use these commands to
see what is stored or to force the next run to start over.`,
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show the checkpoint for a user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := checkpointStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		info, err := checkpoint.Info(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		if info == nil {
			ui.PrintInfo("No checkpoint", args[0])
			return nil
		}

		ui.PrintInfo("Run", fmt.Sprint(info["run_id"]))
		ui.PrintInfo("Followers", fmt.Sprint(info["records"]))
		ui.PrintInfo("Pages", fmt.Sprint(info["pages"]))
		ui.PrintInfo("Cursor", fmt.Sprint(info["cursor"]))
		if age, ok := info["age"].(time.Duration); ok {
			ui.PrintInfo("Updated", age.Round(time.Second).String()+" ago")
		}
		return nil
	},
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear <user-id>",
	Short: "Delete the checkpoint for a user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := checkpointStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		exists, err := store.Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !exists {
			ui.PrintInfo("No checkpoint", args[0])
			return nil
		}
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		ui.PrintSuccess("Checkpoint cleared for " + args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointClearCmd)
}

func checkpointStore(cmd *cobra.Command) (checkpoint.Store, func(), error) {
	cfg, log, err := loadConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	// inspection works even when checkpoints are disabled for runs
	cfg.Checkpoint.Enabled = true
	return openCheckpoints(cmd.Context(), cfg, log)
}
