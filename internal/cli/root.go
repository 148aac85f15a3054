// Package cli is the thin command wrapper around the engine. Every command
// is one invocation: open the store, run one operation, print JSON, exit.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpatrickfarrell/jat-sub013/internal/config"
	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/pkg/engine"
)

type rootOptions struct {
	projectPath string
	agent       string
}

// NewRootCmd builds the agentmail command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "agentmail",
		Short:         "Coordination engine for concurrent coding agents",
		Long:          "agentmail coordinates autonomous coding agents sharing a working tree:\npath-pattern file reservations with conflict detection, and a threaded\nmailbox with acknowledgment tracking.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.projectPath, "project", "", "project working-tree path (default: current directory)")
	root.PersistentFlags().StringVar(&opts.agent, "agent", os.Getenv("AGENTMAIL_AGENT"), "acting agent name")

	root.AddCommand(
		newRegisterCmd(opts),
		newWhoamiCmd(opts),
		newAgentsCmd(opts),
		newReserveCmd(opts),
		newReleaseCmd(opts),
		newReservationsCmd(opts),
		newSendCmd(opts),
		newInboxCmd(opts),
		newShowCmd(opts),
		newAckCmd(opts),
		newSearchCmd(opts),
		newPurgeCmd(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// withEngine opens the store, resolves the project, runs fn, and closes.
func withEngine(cmd *cobra.Command, opts *rootOptions, fn func(*engine.Engine, core.Project) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	eng, err := engine.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	path := opts.projectPath
	if path == "" {
		path, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve project path: %w", err)
	}
	project, err := eng.Project(cmd.Context(), path)
	if err != nil {
		return err
	}
	return fn(eng, project)
}

func (o *rootOptions) requireAgent() (string, error) {
	if o.agent == "" {
		return "", fmt.Errorf("agent name required (--agent or AGENTMAIL_AGENT)")
	}
	return o.agent, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
