// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/resolution"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/utils"
)

// PrintTransaction writes the merge list the way an interactive user
// expects it, followed by blockers, required configuration changes and
// dependency cycles
func PrintTransaction(p utils.RawPrinter, t *resolution.Transaction) {
	if len(t.MergeList) == 0 {
		p.Println("Nothing to merge.")
	} else {
		p.Println("These are the packages that would be merged, in order:")
		p.Println()
		for _, e := range t.MergeList {
			p.Println(FormatEntry(e))
		}
	}

	for _, b := range t.Blockers {
		blocking := strings.Join(b.BlockingPackages, ", ")
		if b.Satisfied {
			p.Printf("[blocks %s     ] %s (%s uninstalled for %s)\n", "b", color.RedString(b.Atom), blocking, b.Parent)
		} else {
			p.Printf("[blocks %s     ] %s (%s is blocking %s)\n", color.New(color.FgRed, color.Bold).Sprint("B"), color.RedString(b.Atom), blocking, b.Parent)
		}
	}

	use := filterChanges(t.Autounmask, func(c *resolution.AutounmaskChange) []string { return c.UseChanges })
	keywords := filterChanges(t.Autounmask, func(c *resolution.AutounmaskChange) []string { return c.Keywords })
	if len(use) > 0 {
		p.Println()
		p.Println(color.YellowString("The following USE changes are necessary to proceed:"))
		printChanges(p, use, func(c *resolution.AutounmaskChange) []string { return c.UseChanges })
	}
	if len(keywords) > 0 {
		p.Println()
		p.Println(color.YellowString("The following keyword changes are necessary to proceed:"))
		printChanges(p, keywords, func(c *resolution.AutounmaskChange) []string { return c.Keywords })
	}

	if len(t.Cycles) > 0 {
		p.Println()
		p.Println(color.YellowString("Dependency cycles were broken by ignoring soft dependencies:"))
		for _, c := range t.Cycles {
			p.Printf("  %s\n", c)
		}
	}
}

func FormatEntry(e *resolution.MergeEntry) string {
	if e.Operation != string(resolver.EntryMerge) {
		return fmt.Sprintf("[%s     ] %s", color.RedString("uninstall"), color.RedString(e.String()))
	}

	var status string
	switch e.Status {
	case resolver.StatusNew:
		status = color.GreenString("%-6s", e.Status)
	case resolver.StatusUpgrade:
		status = color.CyanString("%-6s", e.Status)
	case resolver.StatusDowngrade:
		status = color.BlueString("%-6s", e.Status)
	case resolver.StatusReinstall:
		status = color.YellowString("%-6s", e.Status)
	default:
		status = fmt.Sprintf("%-6s", e.Status)
	}

	line := fmt.Sprintf("[%-7s %s] %s", e.Type, status, color.GreenString(e.String()))
	if len(e.Use) > 0 {
		line += fmt.Sprintf(" USE=\"%s\"", color.RedString(strings.Join(e.Use, " ")))
	}
	return line
}

func filterChanges(changes []*resolution.AutounmaskChange, get func(*resolution.AutounmaskChange) []string) []*resolution.AutounmaskChange {
	return lo.Filter(changes, func(c *resolution.AutounmaskChange, _ int) bool { return len(get(c)) > 0 })
}

func printChanges(p utils.RawPrinter, changes []*resolution.AutounmaskChange, get func(*resolution.AutounmaskChange) []string) {
	for _, c := range changes {
		p.Printf("=%s %s\n", c.Cpv, strings.Join(get(c), " "))
	}
}
