package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/client"
	"github.com/kozaktomas/photo-triage/internal/embedder"
	"github.com/kozaktomas/photo-triage/internal/library"
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Register reference photos with the API",
	Long: `Embed reference photos and register them with the API.

Each immediate subfolder of --refs is one person, named after the folder.
Every image below it (recursively) is embedded; people without any usable
image are left out. Registering a name again replaces its references.`,
	Example: `  photo-triage refs --refs ./references
  photo-triage refs --refs ./references --embedder face --embedding-url http://localhost:8000`,
	RunE: runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)

	refsCmd.Flags().String("refs", "", "References root; subfolders are persons (required)")
	_ = refsCmd.MarkFlagRequired("refs")
	addEmbedderFlags(refsCmd)
}

// refsSummary is one row of the refs result table.
type refsSummary struct {
	Name     string
	Images   int
	Embedded int
}

func runRefs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadLocalApp(cmd)
	if err != nil {
		return err
	}
	if err := applyEmbedderFlags(cmd, &cfg); err != nil {
		return err
	}
	logger := newRunLogger("refs")

	emb, err := embedder.New(cfg.Embedder, cfg.EmbeddingURL, logger)
	if err != nil {
		return err
	}

	req, summary, err := collectReferences(ctx, emb, mustGetString(cmd, "refs"), cfg.Concurrency, logger)
	if err != nil {
		return err
	}
	logger.Info("references embedded",
		slog.String("embedder", emb.Name()),
		slog.Int("persons", len(req.Persons)))

	resp, err := client.New(cfg.BackendURL).Register(ctx, req)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Printf("Server: %d %s\n", apiErr.StatusCode, apiErr.Message)
		return err
	}
	if err != nil {
		return fmt.Errorf("registering references: %w", err)
	}

	printRefsSummary(summary, resp)
	return nil
}

// collectReferences embeds every reference folder below root.
func collectReferences(ctx context.Context, emb embedder.Embedder, root string, concurrency int, logger *slog.Logger) (api.RegisterRequest, []refsSummary, error) {
	normalize := true
	req := api.RegisterRequest{Persons: []api.PersonRefs{}, Normalize: &normalize}

	dirs, err := library.ReferenceDirs(root)
	if err != nil {
		return req, nil, err
	}

	summary := make([]refsSummary, 0, len(dirs))
	for _, dir := range dirs {
		files, err := library.WalkImages(dir.Path)
		if err != nil {
			return req, nil, err
		}

		embedded, _, err := embedFiles(ctx, emb, files, concurrency, "Embedding "+dir.Name, logger)
		if err != nil {
			return req, nil, err
		}
		summary = append(summary, refsSummary{Name: dir.Name, Images: len(files), Embedded: len(embedded)})
		if len(embedded) == 0 {
			logger.Warn("no usable reference images", slog.String("person", dir.Name))
			continue
		}

		refs := api.PersonRefs{Name: dir.Name, Embeddings: make([][]float32, len(embedded))}
		for i, e := range embedded {
			refs.Embeddings[i] = e.Vector
		}
		req.Persons = append(req.Persons, refs)
	}
	return req, summary, nil
}

func printRefsSummary(summary []refsSummary, resp *api.RegisterResponse) {
	registered := make(map[string]bool, len(resp.Registered))
	for _, name := range resp.Registered {
		registered[name] = true
	}

	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		status := "registered"
		if !registered[s.Name] {
			status = "skipped"
		}
		rows = append(rows, []string{s.Name, strconv.Itoa(s.Images), strconv.Itoa(s.Embedded), status})
	}

	fmt.Println(renderTable(
		[]string{"Person", "Images", "Embedded", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
	fmt.Printf("Registered %d persons, %d total on server\n", len(resp.Registered), resp.TotalPersons)
}
