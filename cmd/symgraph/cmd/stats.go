package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abramin/symgraph/internal/store"
)

var (
	statsProject string
	statsJSON    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics about the last index",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(GetConfig().DataDirFor(statsProject))
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Printf("Session:     %s\n", stats.SessionID)
		if !stats.IndexedAt.IsZero() {
			fmt.Printf("Indexed at:  %s\n", stats.IndexedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Symbols:     %d\n", stats.SymbolCount)
		printByKind(stats.SymbolsByKind)
		fmt.Printf("Edges:       %d (%d dangling)\n", stats.EdgeCount, stats.DanglingCount)
		printByKind(stats.EdgesByKind)
		fmt.Printf("Diagnostics: %d\n", stats.DiagnosticCount)
		return nil
	},
}

func printByKind(counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-22s %d\n", k, counts[k])
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsProject, "project", "C", ".", "project directory that holds the data dir")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
}
