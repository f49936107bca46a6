package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fencio-dev/guard-sub000/internal/config"
	"github.com/fencio-dev/guard-sub000/internal/domain/intent"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
)

var (
	enforceIntentFile string
	enforceBundleFile string
)

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Evaluate a single intent from JSON",
	Long: `Evaluate one intent against a rule bundle, in process, and print the
enforcement result as JSON. Useful for testing rule bundles without
standing up a server.

The intent is read from --file or stdin:

  guard enforce --rules rules.yaml --file intent.json
  cat intent.json | guard enforce --rules rules.yaml

Exit status is 0 for ALLOW, 2 for BLOCK, 1 for request errors.`,
	RunE: runEnforce,
}

func init() {
	enforceCmd.Flags().StringVar(&enforceIntentFile, "file", "", "intent JSON file (default: stdin)")
	enforceCmd.Flags().StringVar(&enforceBundleFile, "rules", "", "rule bundle to evaluate against (required)")
	_ = enforceCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(enforceCmd)
}

func runEnforce(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	contract, err := vocab.Load()
	if err != nil {
		return err
	}

	var intentJSON []byte
	if enforceIntentFile != "" {
		intentJSON, err = os.ReadFile(enforceIntentFile)
	} else {
		intentJSON, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("reading intent: %w", err)
	}
	var in intent.Intent
	if err := json.Unmarshal(intentJSON, &in); err != nil {
		return fmt.Errorf("parsing intent: %w", err)
	}

	rules, err := config.LoadRuleBundle(enforceBundleFile, contract)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	for tenant, tenantRules := range groupByTenant(rules) {
		res, err := a.install.InstallRules(ctx, tenant, tenantRules)
		if err != nil {
			return err
		}
		for _, f := range res.Failures {
			return fmt.Errorf("installing %s: %s", f.RuleID, f.Reason)
		}
	}

	res, err := a.enforce.Enforce(ctx, &in)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if res.Decision == 0 {
		os.Exit(2)
	}
	return nil
}
