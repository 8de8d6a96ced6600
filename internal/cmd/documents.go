package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Lokie-ree/aida-sub001/internal/retrieval"
)

var (
	docScope string
	docLabel string
	docID    string
	docLimit int
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage the district document index",
}

var documentsAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add or replace one pre-chunked document",
	Args:  cobra.ExactArgs(1),
	RunE:  documentsAdd,
}

var documentsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index the way the assistant does",
	Args:  cobra.MinimumNArgs(1),
	RunE:  documentsSearch,
}

func init() {
	documentsAddCmd.Flags().StringVar(&docScope, "scope", "", "district scope ID (empty = shared by all scopes)")
	documentsAddCmd.Flags().StringVar(&docLabel, "label", "", "source label cited in answers (default: file name)")
	documentsAddCmd.Flags().StringVar(&docID, "id", "", "document ID; an existing document with this ID is replaced")
	documentsSearchCmd.Flags().StringVar(&docScope, "scope", "", "district scope ID")
	documentsSearchCmd.Flags().IntVar(&docLimit, "limit", 5, "maximum results")

	documentsCmd.AddCommand(documentsAddCmd)
	documentsCmd.AddCommand(documentsSearchCmd)
	rootCmd.AddCommand(documentsCmd)
}

func openIndex() (*retrieval.Index, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return retrieval.NewIndex(cfg.DocumentDBPath())
}

func documentsAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	label := docLabel
	if label == "" {
		label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	index, err := openIndex()
	if err != nil {
		return fmt.Errorf("initializing document index: %w", err)
	}
	defer index.Close()

	id, err := index.Put(ctx, retrieval.Document{
		ID:          docID,
		ScopeID:     docScope,
		SourceLabel: label,
		Content:     string(content),
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	log.Info().Str("document_id", id).Str("scope_id", docScope).Str("label", label).Msg("document_indexed")
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func documentsSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	index, err := openIndex()
	if err != nil {
		return fmt.Errorf("initializing document index: %w", err)
	}
	defer index.Close()

	res, err := index.Search(ctx, strings.Join(args, " "), docScope, docLimit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	out := cmd.OutOrStdout()
	if res.Empty() {
		fmt.Fprintln(out, "No documents matched.")
		return nil
	}
	for _, item := range res.Items {
		fmt.Fprintf(out, "%s  %s\n    %s\n", formatRelevance(item.Relevance), item.SourceLabel, excerpt(item.Content, 120))
	}
	return nil
}
