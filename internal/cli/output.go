package cli

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/agentrig/agentrig/internal/resource"
	"github.com/agentrig/agentrig/internal/state"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// renderRunResult prints the per-step outcomes of a setup run.
func renderRunResult(result *resource.RunResult) {
	for _, s := range result.Steps {
		symbol, color := "+", colorGreen
		switch s.Action {
		case resource.ActionSkipped:
			symbol, color = " ", colorReset
		case resource.ActionAdopted:
			symbol, color = "=", colorGreen
		case resource.ActionRecreated:
			symbol, color = "-/+", colorYellow
		case resource.ActionFailed:
			symbol, color = "!", colorRed
		}
		line := fmt.Sprintf("  %s%-3s %-14s %-40s %s%s", color, symbol, s.Type, s.Key, s.ExternalID, colorReset)
		fmt.Println(line)
		if s.Err != nil {
			fmt.Printf("      %s%v%s\n", colorRed, s.Err, colorReset)
		}
	}

	counts := lo.CountValuesBy(result.Steps, func(s resource.StepOutcome) resource.StepAction {
		return s.Action
	})
	fmt.Printf("  %d created, %d adopted, %d skipped, %d recreated, %d failed\n",
		counts[resource.ActionCreated], counts[resource.ActionAdopted],
		counts[resource.ActionSkipped], counts[resource.ActionRecreated],
		counts[resource.ActionFailed])
}

// renderTeardownReport prints the per-resource outcomes of a teardown.
func renderTeardownReport(report *resource.TeardownReport) {
	for _, s := range report.Steps {
		symbol, color := "-", colorGreen
		switch s.Outcome {
		case resource.TeardownAlreadyAbsent:
			symbol, color = " ", colorReset
		case resource.TeardownFailed:
			symbol, color = "!", colorRed
		}
		fmt.Printf("  %s%-3s %-14s %-40s %s%s\n", color, symbol, s.Type, s.Key, s.Outcome, colorReset)
		if s.Err != nil {
			fmt.Printf("      %s%v%s\n", colorRed, s.Err, colorReset)
		}
	}

	counts := lo.CountValuesBy(report.Steps, func(s resource.TeardownStep) resource.TeardownOutcome {
		return s.Outcome
	})
	fmt.Printf("  %d deleted, %d already absent, %d failed\n",
		counts[resource.TeardownDeleted], counts[resource.TeardownAlreadyAbsent],
		counts[resource.TeardownFailed])
}

// renderRecords prints one module's records as a status table.
func renderRecords(store *state.Store) {
	for _, key := range store.Keys() {
		rec := store.Get(key)
		color := colorReset
		switch rec.Status {
		case resource.StatusCreated:
			color = colorGreen
		case resource.StatusInProgress:
			color = colorYellow
		case resource.StatusFailed:
			color = colorRed
		}
		fmt.Printf("  %s%-12s%s %-14s %-40s %s\n", color, rec.Status, colorReset, rec.Type, key, rec.ExternalID)
		if rec.LastError != "" {
			fmt.Printf("      %s%s%s\n", colorRed, rec.LastError, colorReset)
		}
	}
}
