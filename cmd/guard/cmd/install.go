package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fencio-dev/guard-sub000/internal/config"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
)

var installFile string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install rules from a YAML bundle",
	Long: `Install rules from a YAML rule bundle into the in-process rule store.

With persistence enabled in guard.yaml, installed rules (and their
pre-encoded anchors) are also written to the replay store, so a later
"guard serve" starts with them loaded.

Example bundle:

  rules:
    - rule_id: allow-analytics-tools
      family_id: tool_whitelist
      layer: L4
      tenant_id: acme
      agent_id: analytics-agent
      priority: 100
      params:
        allowed_tool_ids: [search_database, update_record]`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installFile, "file", "", "rule bundle to install (required)")
	_ = installCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	contract, err := vocab.Load()
	if err != nil {
		return err
	}
	rules, err := config.LoadRuleBundle(installFile, contract)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("rule bundle %s contains no rules", installFile)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	totalInstalled := 0
	for tenant, tenantRules := range groupByTenant(rules) {
		res, err := a.install.InstallRules(ctx, tenant, tenantRules)
		if err != nil {
			return err
		}
		a.persistInstalled(ctx, tenantRules, res)
		totalInstalled += res.Installed
		for _, f := range res.Failures {
			fmt.Fprintf(os.Stderr, "failed: %s: %s\n", f.RuleID, f.Reason)
		}
	}

	out, _ := json.Marshal(map[string]int{"installed": totalInstalled})
	fmt.Println(string(out))
	return nil
}
