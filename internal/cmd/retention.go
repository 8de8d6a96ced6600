package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var retentionDryRun bool

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Delete audit logs and feedback sessions past their retention window",
	Long: `Runs one retention pass: audit logs older than the audit window
(default 7 years) and feedback sessions older than the session window
(default 3 years) are deleted. Prints {"deletedCount": N, "errors": [...]}.`,
	RunE: runRetention,
}

func init() {
	retentionCmd.Flags().BoolVar(&retentionDryRun, "dry-run", false, "report what would be deleted without deleting")
	rootCmd.AddCommand(retentionCmd)
}

func runRetention(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	ctx, span := tracer.Start(ctx, "retention")
	defer span.End()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	enforcer := buildEnforcer(cfg, st)
	out := cmd.OutOrStdout()

	if retentionDryRun {
		pending, err := enforcer.Pending(ctx)
		if err != nil {
			return fmt.Errorf("checking retention: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pending)
	}

	res := enforcer.Enforce(ctx)
	log.Info().Int("deleted", res.DeletedCount).Int("errors", len(res.Errors)).Msg("retention_cli_completed")

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("retention finished with %d error(s)", len(res.Errors))
	}
	return nil
}
