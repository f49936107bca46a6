package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fencio-dev/guard-sub000/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print rule store statistics",
	Long: `Print table and rule counts for the rule store as JSON. With
persistence enabled, the store is rehydrated from the replay store first,
so the counts reflect the persisted rule set.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out, _ := json.MarshalIndent(a.install.RuleStats(), "", "  ")
	fmt.Println(string(out))
	return nil
}
