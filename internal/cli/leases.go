package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
	"github.com/jpatrickfarrell/jat-sub013/pkg/engine"
)

func newReserveCmd(opts *rootOptions) *cobra.Command {
	var (
		ttlSeconds int
		shared     bool
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "reserve PATTERN",
		Short: "Claim a path pattern for the acting agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := opts.requireAgent()
			if err != nil {
				return err
			}
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				res, err := eng.Leases().Reserve(
					cmd.Context(), project.ID, agent, args[0],
					!shared, reason, time.Duration(ttlSeconds)*time.Second)

				var conflict *core.ReservationConflictError
				if errors.As(err, &conflict) {
					if perr := printJSON(cmd, struct {
						Conflict []core.ConflictDetail `json:"conflict"`
					}{Conflict: conflict.Conflicts}); perr != nil {
						return perr
					}
					return err
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					OK          bool             `json:"ok"`
					Reservation core.Reservation `json:"reservation"`
				}{OK: true, Reservation: res})
			})
		},
	}
	cmd.Flags().IntVar(&ttlSeconds, "ttl", 0, "lease duration in seconds (default: engine default)")
	cmd.Flags().BoolVar(&shared, "shared", false, "allow overlap with other shared reservations")
	cmd.Flags().StringVar(&reason, "reason", "", "why the paths are claimed")
	return cmd
}

func newReleaseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release PATTERN",
		Short: "Release the acting agent's reservations matching the pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := opts.requireAgent()
			if err != nil {
				return err
			}
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				count, err := eng.Leases().Release(cmd.Context(), project.ID, agent, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					ReleasedCount int `json:"released_count"`
				}{ReleasedCount: count})
			})
		},
	}
}

func newReservationsCmd(opts *rootOptions) *cobra.Command {
	var (
		agent  string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "List the project's active reservations in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				list, err := eng.Leases().List(cmd.Context(), project.ID, agent, prefix)
				if err != nil {
					return err
				}
				if list == nil {
					list = []core.Reservation{}
				}
				return printJSON(cmd, list)
			})
		},
	}
	cmd.Flags().StringVar(&agent, "holder", "", "only reservations held by this agent")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only patterns with this prefix")
	return cmd
}

func newPurgeCmd(opts *rootOptions) *cobra.Command {
	var graceSeconds int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete reservation rows whose TTL elapsed",
		Long:  "Delete expired reservation rows. Maintenance only: every read already\nfilters expired rows, purging just reclaims space.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(eng *engine.Engine, project core.Project) error {
				count, err := eng.Leases().Purge(cmd.Context(), time.Duration(graceSeconds)*time.Second)
				if err != nil {
					return err
				}
				return printJSON(cmd, struct {
					PurgedCount int `json:"purged_count"`
				}{PurgedCount: count})
			})
		},
	}
	cmd.Flags().IntVar(&graceSeconds, "grace", 3600, "only rows expired at least this many seconds ago")
	return cmd
}
