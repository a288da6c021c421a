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
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swarmind/hive/common/event"
	"github.com/swarmind/hive/common/event/topic"
	"github.com/swarmind/hive/core/audit"
	"github.com/swarmind/hive/core/machine"
	"github.com/swarmind/hive/core/sm"
)

const (
	CALL_TIMEOUT = 55 * time.Second
	SPINNER_TICK = 100 * time.Millisecond
)

var runEvents []string

var runCmd = &cobra.Command{
	Use:   "run [machine definition file]",
	Short: "drive a machine through a sequence of events",
	Long: `The run command builds a transition hub from a machine definition and
drives it through the given event sequence, printing the resulting
transition history.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := machine.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			os.Exit(1)
		}
		hub, err := def.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			os.Exit(1)
		}

		if endpoints := viper.GetStringSlice("kafkaEndpoints"); len(endpoints) > 0 {
			hub.SetEventSink(event.NewWriterWithTopic(topic.Ev_Hub_Transition))
		}

		var store *audit.Store
		if dbPath := viper.GetString("audit_db"); len(dbPath) > 0 {
			store, err = audit.NewStore(dbPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
				os.Exit(1)
			}
			defer store.Close()
		}

		s := spinner.New(spinner.CharSets[11], SPINNER_TICK)
		s.Color("yellow")
		s.Suffix = " running " + def.Name
		s.Start()

		ctx, cancel := context.WithTimeout(context.Background(), CALL_TIMEOUT)
		defer cancel()

		failures := 0
		for _, evName := range runEvents {
			_, err = hub.Transition(ctx, sm.NewEvent(sm.EventType(evName)))
			if err != nil {
				failures++
				log.WithPrefix(cmd.Use).
					WithField("event", evName).
					Warnf("transition failed: %v", err)
			}
		}
		s.Stop()

		if store != nil {
			if err = store.Sync(hub); err != nil {
				log.WithPrefix(cmd.Use).Warnf("cannot persist history: %v", err)
			}
		}

		stateColor := green
		if failures > 0 {
			stateColor = yellow
		}
		fmt.Printf("machine %s settled in state %s, %d events failed\n",
			blue(def.Name), stateColor(hub.CurrentState().String()), failures)
		drawHistoryTable(os.Stdout, hub.History())
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runEvents, "events", []string{}, "comma-separated event sequence to apply")
	rootCmd.AddCommand(runCmd)
}
