package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/pkg/engine"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name, program, model, description string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or resume an agent identity in the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				agent, created, err := eng.Registry().Register(
					cmd.Context(), project.ID, name, program, model, description)
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					Name    string `json:"name"`
					Created bool   `json:"created"`
					Project string `json:"project"`
				}{Name: agent.Name, Created: created, Project: project.Slug})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "agent name (generated when omitted)")
	cmd.Flags().StringVar(&program, "program", "", "program driving the agent")
	cmd.Flags().StringVar(&model, "model", "", "model driving the agent")
	cmd.Flags().StringVar(&description, "description", "", "what the agent is working on")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve the acting agent's identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				agent, err := eng.Registry().WhoAmI(cmd.Context(), project.ID, opts.agent)
				if errors.Is(err, core.ErrNotRegistered) {
					return printJSON(cmd, struct {
						NotRegistered bool `json:"not_registered"`
					}{NotRegistered: true})
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					Name string `json:"name"`
				}{Name: agent.Name})
			})
		},
	}
}

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List registered agents, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				scope := project.ID
				if all {
					scope = ""
				}
				agents, err := eng.Registry().List(cmd.Context(), scope)
				if err != nil {
					return err
				}
				if agents == nil {
					agents = []core.Agent{}
				}
				return printJSON(cmd, agents)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list agents across every project")
	return cmd
}
