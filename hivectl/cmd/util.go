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
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"

	"github.com/swarmind/hive/core/dispatch"
	"github.com/swarmind/hive/core/sm"
)

var (
	blue   = color.New(color.FgHiBlue).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	grey   = color.New(color.FgWhite).SprintFunc()
)

func drawHistoryTable(o io.Writer, history []sm.TransitionRecord) {
	table := tablewriter.NewWriter(o)
	table.SetHeader([]string{"id", "from", "event", "to", "timestamp"})
	table.SetBorder(false)
	for _, rec := range history {
		table.Append([]string{
			grey(rec.Id.String()),
			blue(rec.From.String()),
			yellow(string(rec.Event)),
			green(rec.To.String()),
			rec.Timestamp.Format("15:04:05.000"),
		})
	}
	table.Render()
}

func drawTierTree(o io.Writer, d *dispatch.Dispatcher, root dispatch.TierID) {
	tree := treeprint.New()
	tree.SetValue(tierLabel(d, root))
	buildTierTree(tree, d, root)
	io.WriteString(o, tree.String())
}

func buildTierTree(tree treeprint.Tree, d *dispatch.Dispatcher, tier dispatch.TierID) {
	for _, child := range d.Children(tier) {
		branch := tree.AddBranch(tierLabel(d, child))
		buildTierTree(branch, d, child)
	}
}

func tierLabel(d *dispatch.Dispatcher, tier dispatch.TierID) string {
	hub, ok := d.Tier(tier)
	if !ok {
		return red(tier.String())
	}
	state := hub.CurrentState()
	if state == sm.NilState {
		return blue(tier.String()) + " " + red("DEGRADED")
	}
	return blue(tier.String()) + " " + green(state.String())
}
