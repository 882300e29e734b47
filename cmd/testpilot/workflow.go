package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testpilot/internal/git"
	"testpilot/internal/workflow"
)

var workflowJSON bool

var workflowCmd = &cobra.Command{
	Use:   "workflow <name>",
	Short: "Run a named workflow",
	Long: fmt.Sprintf(`Run one of the built-in workflows and print the settled result.
Steps run in parallel; a failed step never aborts its siblings.

Available workflows: %s`, strings.Join(workflow.Names(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: workflow.Names(),
	RunE:      runWorkflow,
}

func init() {
	workflowCmd.Flags().BoolVar(&workflowJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, closeHistory, err := openHistory(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	collab := workflow.Collaborators{}
	if g, gitErr := git.New(cmd.Context(), "."); gitErr == nil {
		collab.Repository = g
		collab.Changes = g
		collab.Revisions = g
	}

	orch := workflow.New(cfg, collab, history)
	wf, err := orch.Build(args[0])
	if err != nil {
		return err
	}

	result := orch.Run(cmd.Context(), wf)

	if workflowJSON {
		if encErr := json.NewEncoder(os.Stdout).Encode(result); encErr != nil {
			return encErr
		}
	} else {
		if result.Success {
			color.Green("%s", result.Summary)
		} else {
			color.Red("%s", result.Summary)
		}

		keys := make([]string, 0, len(result.Results))
		for key := range result.Results {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  ok   %s\n", key)
		}

		errKeys := make([]string, 0, len(result.Errors))
		for key := range result.Errors {
			errKeys = append(errKeys, key)
		}
		sort.Strings(errKeys)
		for _, key := range errKeys {
			color.Red("  fail %s: %s", key, result.Errors[key])
		}
	}

	if !result.Success {
		return fmt.Errorf("workflow %s failed", result.Workflow)
	}
	return nil
}
