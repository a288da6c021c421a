/*
 * === This file is part of Hive ===
 *
 * Copyright 2025 the Hive authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmind/hive/core/dispatch"
	"github.com/swarmind/hive/core/machine"
	"github.com/swarmind/hive/core/sm"
)

var (
	tierEvents []string
	fromTier   string
)

var tiersCmd = &cobra.Command{
	Use:   "tiers [machine definition file]",
	Short: "build a queen/princess/drone delegation tree and route events through it",
	Long: `The tiers command builds one hub per tier from the same machine
definition, wires them into a three-level delegation tree and routes the
given events from the chosen tier: queen events forward to the princess,
princess events broadcast to the drones.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := machine.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			os.Exit(1)
		}

		const (
			queen    = dispatch.TierID("queen")
			princess = dispatch.TierID("princess")
			droneA   = dispatch.TierID("drone-a")
			droneB   = dispatch.TierID("drone-b")
		)

		routes := dispatch.NewRoutingTable().
			MustAdd(queen, "*", dispatch.Target{Tier: princess}).
			MustAdd(princess, "*", dispatch.BroadcastTarget)

		d := dispatch.NewDispatcher(routes)
		for _, tier := range []dispatch.TierID{queen, princess, droneA, droneB} {
			hub, buildErr := def.Build()
			if buildErr != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), buildErr)
				os.Exit(1)
			}
			if err = d.RegisterTier(tier, hub); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
				os.Exit(1)
			}
		}
		d.SetParent(princess, queen)
		d.SetParent(droneA, princess)
		d.SetParent(droneB, princess)

		ctx := context.Background()
		for _, evName := range tierEvents {
			if _, err = d.Route(ctx, dispatch.TierID(fromTier), sm.NewEvent(sm.EventType(evName))); err != nil {
				log.WithPrefix(cmd.Use).
					WithField("event", evName).
					Warnf("route failed: %v", err)
			}
		}

		drawTierTree(os.Stdout, d, queen)
	},
}

func init() {
	tiersCmd.Flags().StringSliceVar(&tierEvents, "events", []string{}, "comma-separated event sequence to route")
	tiersCmd.Flags().StringVar(&fromTier, "from", "princess", "tier the events originate from")
	rootCmd.AddCommand(tiersCmd)
}
