package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/kinetic/pkg/anim"
)

func presetsCmd(g *globals) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List spring presets",
		Long: `List the built-in spring presets together with the presets defined in
kinetic.yaml. Presets from the file override built-in ones of the same
name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresets(g, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print presets as JSON")

	return cmd
}

func runPresets(g *globals, jsonOut bool) error {
	names := make([]string, 0, len(anim.SpringPresets)+len(g.cfg.Spring.Presets))
	seen := make(map[string]bool)
	for name := range anim.SpringPresets {
		names = append(names, name)
		seen[name] = true
	}
	for name := range g.cfg.Spring.Presets {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	presets := make(map[string]anim.SpringConfig, len(names))
	for _, name := range names {
		presets[name], _ = g.cfg.SpringPreset(name)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(presets)
	}

	fmt.Printf("%-10s  %9s  %7s  %5s  %6s  %s\n", "name", "stiffness", "damping", "mass", "ratio", "class")
	for _, name := range names {
		c := presets[name]
		row := fmt.Sprintf("%-10s  %9.1f  %7.1f  %5.2f  %6.3f  %s",
			name, c.Stiffness, c.Damping, c.Mass, c.DampingRatio(), c.Class())
		if _, custom := g.cfg.Spring.Presets[name]; custom {
			row += "  (kinetic.yaml)"
		}
		fmt.Println(row)
	}
	return nil
}
