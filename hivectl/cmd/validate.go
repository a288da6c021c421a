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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swarmind/hive/core/machine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [machine definition file]",
	Short: "validate a machine definition",
	Long: `The validate command checks a machine definition YAML file against the
definition schema and flags configuration bugs: undeclared states, dead
states and malformed guard expressions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := machine.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			os.Exit(1)
		}
		if _, err = def.Build(); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
			os.Exit(1)
		}
		fmt.Printf("%s machine %s: %d states, %d transitions\n",
			green("✓"), blue(def.Name), len(def.States), len(def.Transitions))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
