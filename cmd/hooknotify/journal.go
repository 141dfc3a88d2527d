package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"hooknotify/internal/journal"
	"hooknotify/pkg/config"

	"github.com/spf13/cobra"
)

var (
	journalDB    string
	journalLimit int
	journalJSON  bool
	pruneAge     time.Duration
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the delivery journal",
	Long: `Inspect the SQLite journal written by "serve" when journal.path is set.

The journal keeps request metadata only, never payloads.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent deliveries",
	RunE:  runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count deliveries by HTTP status",
	RunE:  runJournalStats,
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old deliveries",
	RunE:  runJournalPrune,
}

func init() {
	journalCmd.PersistentFlags().StringVar(&journalDB, "db", getEnvOrDefault("HOOKNOTIFY_JOURNAL", ""), "Journal database (defaults to journal.path)")

	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of deliveries to show")
	journalListCmd.Flags().BoolVar(&journalJSON, "json", false, "Print JSON")
	journalPruneCmd.Flags().DurationVar(&pruneAge, "older-than", 30*24*time.Hour, "Delete deliveries older than this")

	journalCmd.AddCommand(journalListCmd, journalStatsCmd, journalPruneCmd)
}

func openJournalForCommand() (*journal.Journal, error) {
	path := journalDB
	if path == "" {
		cfg, _, err := loadConfig(configFile)
		if err != nil {
			return nil, err
		}
		settings, err := config.DecodeJournal(cfg)
		if err != nil {
			return nil, err
		}
		path = settings.Path
	}
	if path == "" {
		return nil, errors.New("no journal configured, set journal.path or --db")
	}
	return journal.Open(path)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournalForCommand()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(cmd.Context(), journalLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if journalJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []journal.Entry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No deliveries recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tSTATUS\tMETHOD\tPATH\tREMOTE\tDURATION\tID")
	for _, e := range entries {
		id := "-"
		if e.NotificationID != nil {
			id = *e.NotificationID
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%dms\t%s\n",
			e.ReceivedAt.Local().Format(time.DateTime), e.Status, e.Method, e.Path, e.RemoteAddr, e.DurationMS, id)
	}
	return w.Flush()
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	j, err := openJournalForCommand()
	if err != nil {
		return err
	}
	defer j.Close()

	counts, err := j.CountByStatus(cmd.Context())
	if err != nil {
		return err
	}

	statuses := make([]int, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Ints(statuses)

	out := cmd.OutOrStdout()
	for _, status := range statuses {
		fmt.Fprintf(out, "%d  %d\n", status, counts[status])
	}
	fmt.Fprintf(out, "total  %d\n", total)
	return nil
}

func runJournalPrune(cmd *cobra.Command, args []string) error {
	if pruneAge <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", pruneAge)
	}

	j, err := openJournalForCommand()
	if err != nil {
		return err
	}
	defer j.Close()

	removed, err := j.Prune(cmd.Context(), time.Now().Add(-pruneAge))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d deliveries older than %s\n", removed, pruneAge)
	return nil
}
