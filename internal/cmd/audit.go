package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lokie-ree/aida-sub001/internal/audit"
)

var (
	auditUser  string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and verify the signed audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's audit entries, newest first",
	RunE:  auditList,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [entry-id]",
	Short: "Verify the HMAC signature of an audit entry",
	Args:  cobra.ExactArgs(1),
	RunE:  auditVerify,
}

func init() {
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "user ID (required)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum entries to show")
	_ = auditListCmd.MarkFlagRequired("user")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func openAuditStore() (*audit.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return audit.NewStore(cfg.AuditDBPath(), cfg.SigningKey)
}

func auditList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := openAuditStore()
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	entries, err := store.ListByUser(ctx, auditUser, auditLimit)
	if err != nil {
		return fmt.Errorf("querying audit log: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
		return nil
	}
	renderAuditList(cmd.OutOrStdout(), entries)
	return nil
}

func auditVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	entryID := args[0]

	store, err := openAuditStore()
	if err != nil {
		return fmt.Errorf("initializing audit store: %w", err)
	}
	defer store.Close()

	valid, err := store.Verify(ctx, entryID)
	if err != nil {
		return fmt.Errorf("verifying audit entry: %w", err)
	}
	renderVerifyResult(cmd.OutOrStdout(), entryID, valid)
	if !valid {
		return fmt.Errorf("signature verification failed for %s", entryID)
	}
	return nil
}

// renderAuditList writes one line per entry to w.
func renderAuditList(w io.Writer, entries []audit.Entry) {
	fmt.Fprintf(w, "Audit Entries (showing %d):\n\n", len(entries))
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(w, "  %s | %s | %s | %s | %s | %s\n",
			e.ID,
			formatTimestamp(e.Timestamp),
			e.Action,
			e.Resource,
			e.IPAddress,
			e.Details,
		)
	}
}

// renderVerifyResult writes the verify outcome to w.
func renderVerifyResult(w io.Writer, entryID string, valid bool) {
	if valid {
		fmt.Fprintf(w, "✓ Audit entry %s: signature VALID (HMAC-SHA256 intact)\n", entryID)
	} else {
		fmt.Fprintf(w, "✗ Audit entry %s: signature INVALID (possible tampering)\n", entryID)
	}
}
