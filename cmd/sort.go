package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/client"
	"github.com/kozaktomas/photo-triage/internal/constants"
	"github.com/kozaktomas/photo-triage/internal/embedder"
	"github.com/kozaktomas/photo-triage/internal/library"
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort an inbox of photos into per-person folders",
	Long: `Embed every image in --inbox, ask the API for the best matching person,
and place each file under --sorted/<person>/. Files without a match above the
threshold go to --sorted/_unassigned/. Images without embeddable content are
left in the inbox.

Modes:
  move  rename into place (copy and remove across filesystems)
  copy  copy, keeping permissions and modification time
  link  hard link, falling back to copy`,
	Example: `  photo-triage sort --inbox ./inbox --sorted ./sorted
  photo-triage sort --inbox ./inbox --sorted ./sorted --mode copy --threshold 0.4`,
	RunE: runSort,
}

func init() {
	rootCmd.AddCommand(sortCmd)

	sortCmd.Flags().String("inbox", "", "Folder of photos to sort (required)")
	sortCmd.Flags().String("sorted", "", "Output root for sorted photos (required)")
	sortCmd.Flags().Float64("threshold", 0, "Minimum similarity for an assignment (default from config, 0.32)")
	sortCmd.Flags().String("mode", "", "How files are placed: move, copy or link (default from config)")
	_ = sortCmd.MarkFlagRequired("inbox")
	_ = sortCmd.MarkFlagRequired("sorted")
	addEmbedderFlags(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadLocalApp(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if m := mustGetString(cmd, "mode"); m != "" {
		cfg.Mode = m
	}
	if err := applyEmbedderFlags(cmd, &cfg); err != nil {
		return err
	}
	mode, err := library.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	inbox := mustGetString(cmd, "inbox")
	sorted := mustGetString(cmd, "sorted")
	logger := newRunLogger("sort")

	lock, err := library.LockRoot(sorted)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release lock", slog.Any("error", err))
		}
	}()

	emb, err := embedder.New(cfg.Embedder, cfg.EmbeddingURL, logger)
	if err != nil {
		return err
	}

	req, skipped, err := collectInbox(ctx, emb, inbox, cfg.Concurrency, logger)
	if err != nil {
		return err
	}
	req.Threshold = &cfg.Threshold
	logger.Info("inbox embedded",
		slog.String("embedder", emb.Name()),
		slog.Int("items", len(req.Inbox)),
		slog.Int("skipped", skipped))

	resp, err := client.New(cfg.BackendURL).Sort(ctx, req)
	if err != nil {
		if client.IsNoPersons(err) {
			fmt.Println("No persons registered. Run \"photo-triage refs\" first.")
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return fmt.Errorf("sorting inbox: %w", err)
	}

	placer := library.Placer{Root: sorted, Mode: mode}
	counts, failed := placeAssignments(placer, inbox, resp.Assignments, logger)

	printSortSummary(counts, skipped, resp.Threshold)
	fmt.Printf("Done. Output at: %s\n", sorted)
	if failed > 0 {
		return fmt.Errorf("%d files could not be placed", failed)
	}
	return nil
}

// collectInbox embeds every image below inbox. File names are sent relative
// to inbox.
func collectInbox(ctx context.Context, emb embedder.Embedder, inbox string, concurrency int, logger *slog.Logger) (api.SortRequest, int, error) {
	req := api.SortRequest{Inbox: []api.InboxItem{}, MultiLabel: false}

	files, err := library.WalkImages(inbox)
	if err != nil {
		return req, 0, err
	}

	embedded, skipped, err := embedFiles(ctx, emb, files, concurrency, "Embedding inbox", logger)
	if err != nil {
		return req, 0, err
	}

	for _, e := range embedded {
		rel, err := filepath.Rel(inbox, e.Path)
		if err != nil {
			return req, 0, fmt.Errorf("relative path for %s: %w", e.Path, err)
		}
		req.Inbox = append(req.Inbox, api.InboxItem{File: rel, Embedding: e.Vector})
	}
	return req, skipped, nil
}

// placeAssignments places every assigned file and returns the number of
// files per destination folder plus the number of failures.
func placeAssignments(placer library.Placer, inbox string, assignments []api.Assignment, logger *slog.Logger) (map[string]int, int) {
	counts := make(map[string]int)
	failed := 0
	for _, a := range assignments {
		person := ""
		if a.Best != nil {
			person = a.Best.Person
		}

		dst, err := placer.Place(filepath.Join(inbox, a.File), person)
		if err != nil {
			logger.Error("failed to place file", slog.String("file", a.File), slog.Any("error", err))
			failed++
			continue
		}
		logger.Debug("placed file", slog.String("file", a.File), slog.String("dst", dst))

		if person == "" {
			person = constants.UnassignedDir
		}
		counts[person]++
	}
	return counts, failed
}

func printSortSummary(counts map[string]int, skipped int, threshold float64) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		if name != constants.UnassignedDir {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := counts[constants.UnassignedDir]; ok {
		names = append(names, constants.UnassignedDir)
	}

	rows := make([][]string, 0, len(names)+1)
	total := 0
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
		total += counts[name]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})

	fmt.Println(renderTable([]string{"Person", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Printf("Threshold %.2f, %d images without embeddable content left in the inbox\n", threshold, skipped)
}
