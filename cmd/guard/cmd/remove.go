package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fencio-dev/guard-sub000/internal/config"
)

var (
	removeTenant string
	removeAgent  string
)

var removeCmd = &cobra.Command{
	Use:   "remove-agent-rules",
	Short: "Remove every rule for one (tenant, agent) pair",
	Long: `Remove every installed rule scoped to the given agent within the given
tenant, across all layers and families. Tenant-scoped rules (no agent id)
are removed by passing an empty --agent.

With persistence enabled, the rules are also deleted from the replay
store.`,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeTenant, "tenant", "", "tenant id (required)")
	removeCmd.Flags().StringVar(&removeAgent, "agent", "", "agent id (empty removes tenant-scoped rules)")
	_ = removeCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	removed := a.install.RemoveAgentRules(ctx, removeTenant, removeAgent)
	if a.replay != nil {
		if _, err := a.replay.DeleteAgentRules(ctx, removeTenant, removeAgent); err != nil {
			return err
		}
	}

	out, _ := json.Marshal(map[string]int{"removed": removed})
	fmt.Println(string(out))
	return nil
}
