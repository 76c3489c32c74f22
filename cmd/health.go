package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health [person]",
	Short: "Show the persons registered with the API",
	Long: `Query the API for its registered persons. With a person name, show the
number of reference samples and the embedding dimension of that person.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadLocalApp(cmd)
	if err != nil {
		return err
	}
	c := client.New(cfg.BackendURL)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := c.Identity(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printIdentity(out, id)
		return nil
	}

	resp, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking %s: %w", cfg.BackendURL, err)
	}
	printHealth(out, cfg.BackendURL, resp)
	return nil
}

func printHealth(w io.Writer, backend string, resp *api.HealthResponse) {
	fmt.Fprintf(w, "%s: %s, %d persons\n", backend, resp.Status, len(resp.Persons))
	if len(resp.Persons) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(resp.Persons, ", "))
	}
}

func printIdentity(w io.Writer, id *api.IdentityResponse) {
	fmt.Fprintln(w, renderTable(
		[]string{"Person", "Samples", "Dim"},
		[][]string{{id.Name, strconv.Itoa(id.SampleCount), strconv.Itoa(id.Dim)}},
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
}
