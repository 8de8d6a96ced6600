package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
)

var (
	askUser  string
	askScope string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question from the command line",
	Long: `Runs a single question through the same pipeline as the voice query
endpoint. With --user the query is audited as that user.`,
	Args: cobra.MinimumNArgs(1),
	RunE: ask,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "caller ID; enables document retrieval and audit")
	askCmd.Flags().StringVar(&askScope, "scope", "", "district scope ID for document retrieval")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the outcome as JSON")
	rootCmd.AddCommand(askCmd)
}

func ask(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	ctx, span := tracer.Start(ctx, "ask")
	defer span.End()

	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return fmt.Errorf("question is empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := buildOrchestrator(cfg, st.documents)
	if err != nil {
		return err
	}

	out := orch.Answer(ctx, assistant.Query{Message: message, CallerID: askUser, ScopeID: askScope})

	if askUser != "" {
		recorder := audit.NewRecorder(st.audit)
		if _, err := recorder.Record(ctx, askUser, audit.ActionVoiceQuery,
			audit.ResourceFor(out.IsPolicyQuery), audit.QueryDetails(message)); err != nil {
			log.Error().Err(err).Str("user_id", askUser).Msg("audit_record_failed")
		}
	}

	return printOutcome(cmd.OutOrStdout(), out, askJSON)
}

func printOutcome(w io.Writer, out assistant.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintln(w, out.ResponseText)
	if len(out.SourceLabels) > 0 {
		fmt.Fprintf(w, "\nSources: %s\n", formatSources(out.SourceLabels))
	}
	return nil
}
