package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrig/agentrig/internal/agent"
	"github.com/agentrig/agentrig/internal/config"
	"github.com/agentrig/agentrig/internal/identity"
	"github.com/agentrig/agentrig/internal/resource"
)

var (
	invokeTool string
	invokeArgs string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Call a tool on the deployed endpoint through the gateway",
	Long: `Obtains a client-credentials token from the provisioned authorizer,
opens a session and calls one tool on the endpoint through the gateway's
protected route.`,
	RunE: runInvoke,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeTool, "tool", "", "Tool name to invoke")
	invokeCmd.Flags().StringVar(&invokeArgs, "args", "{}", "Tool arguments as a JSON object")
	invokeCmd.MarkFlagRequired("tool")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gateway, err := findCreated(cfg, resource.TypeGateway)
	if err != nil {
		return err
	}
	authorizer, err := findCreated(cfg, resource.TypeAuthorizer)
	if err != nil {
		return err
	}

	invokeURL := gateway.Metadata["invokeUrl"]
	if invokeURL == "" {
		return fmt.Errorf("gateway record has no invokeUrl; re-run setup")
	}

	source := identity.NewTokenSource(identity.Credentials{
		TokenEndpoint: authorizer.Metadata["tokenEndpoint"],
		ClientID:      authorizer.Metadata["clientId"],
		ClientSecret:  authorizer.Metadata["clientSecret"],
		Scope:         authorizer.Metadata["scope"],
	}, nil)

	var arguments json.RawMessage
	if err := json.Unmarshal([]byte(invokeArgs), &arguments); err != nil {
		return fmt.Errorf("--args is not valid JSON: %w", err)
	}

	client := agent.NewClient(invokeURL, source)
	return agent.WithSession(cmd.Context(), client.Sessions(), func(ctx context.Context, s agent.Session) error {
		resp, err := client.Invoke(ctx, s, invokeTool, arguments)
		if err != nil {
			return err
		}
		fmt.Println(string(resp))
		return nil
	})
}

// findCreated locates the single CREATED record of a type across all module
// state files.
func findCreated(cfg *config.Config, t resource.Type) (*resource.Record, error) {
	for _, name := range cfg.ModuleNames() {
		store, err := openStore(cfg, name)
		if err != nil {
			return nil, err
		}
		for _, key := range store.Keys() {
			rec := store.Get(key)
			if rec.Type == t && rec.Status == resource.StatusCreated {
				return rec, nil
			}
		}
	}
	return nil, fmt.Errorf("no CREATED %q resource found; run setup first", t)
}
