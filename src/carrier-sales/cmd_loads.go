package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/catalog"
)

func newLoadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loads",
		Short: "Inspect the loads catalog",
	}
	cmd.AddCommand(newLoadsSearchCmd())
	return cmd
}

func newLoadsSearchCmd() *cobra.Command {
	var (
		file          string
		origin        string
		destination   string
		equipmentType string
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a loads file the way the API does",
		Long:  "Search a JSON, YAML or TOML loads file with the same matching and ordering as\nPOST /v1/loads/search and print the matches as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(file)
			if err != nil {
				return fmt.Errorf("loads search: %w", err)
			}
			matches := cat.Search(origin, destination, equipmentType, limit)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		},
	}
	cmd.Flags().StringVar(&file, "file", "loads.seed.json", "loads file (.json, .yaml, .yml or .toml)")
	cmd.Flags().StringVar(&origin, "origin", "", "origin filter")
	cmd.Flags().StringVar(&destination, "destination", "", "destination filter")
	cmd.Flags().StringVar(&equipmentType, "equipment", "", "equipment type filter")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultSearchLimit, "maximum number of matches")
	return cmd
}
