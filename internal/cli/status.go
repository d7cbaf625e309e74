package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrig/agentrig/internal/resource"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [module]",
	Short: "Show per-resource provisioning status",
	Long: `Prints every recorded resource of one module, or of all modules, with its
lifecycle status, external identifier and last error. The same information is
what a resumed run decides from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	modules, err := selectModules(cfg, args)
	if err != nil {
		return err
	}

	if statusJSON {
		out := make(map[string]map[string]*resource.Record)
		for _, name := range modules {
			store, err := openStore(cfg, name)
			if err != nil {
				return err
			}
			out[name] = store.Records()
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, name := range modules {
		store, err := openStore(cfg, name)
		if err != nil {
			return err
		}
		fmt.Printf("Module %s:\n", name)
		if store.Empty() {
			fmt.Println("  (no recorded resources)")
			continue
		}
		renderRecords(store)
	}
	return nil
}
