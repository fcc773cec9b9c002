// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ZisisKostakakis/property-pal-scraper/geocode"
	"github.com/spf13/cobra"
)

// providerRow is one line of the providers table.
type providerRow struct {
	priority   string
	name       string
	credential string
	status     string
}

// providerRows describes every catalog provider, resolving credentials the
// same way the geocoding commands do.
func providerRows(names []string, lookup func(env string) string) []providerRow {
	catalog := geocode.Catalog(nil)
	selected := geocode.Select(catalog, names, lookup)

	ret := make([]providerRow, 0, len(catalog))

	for _, p := range catalog {
		row := providerRow{priority: "-", name: p.Name, credential: p.CredentialEnv, status: "not selected"}
		if row.credential == "" {
			row.credential = "none"
		}

		if i := slices.IndexFunc(selected, func(s geocode.ProviderConfig) bool { return s.Name == p.Name }); i >= 0 {
			row.priority = fmt.Sprint(i + 1)
			row.status = "active"

			if !selected[i].Enabled() {
				row.status = "missing key"
			}
		}

		ret = append(ret, row)
	}

	return ret
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the geocoding providers and whether they are usable",
	Long: `Lists every supported provider. Configured providers show their priority;
providers needing a credential are usable only when it is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rows := providerRows(cfg.Geocoding.Providers, credentials(cmd.Context(), cfg))

		a, b, c, d := strings.Repeat("─", 2), strings.Repeat("─", 10), strings.Repeat("─", 26), strings.Repeat("─", 12)
		fmt.Printf("╭─%2s─┬─%-10s─┬─%-26s─┬─%-12s─╮\n", a, b, c, d)
		fmt.Printf("│ %2s │ %-10s │ %-26s │ %-12s │\n", "#", "Provider", "Credential", "Status")
		fmt.Printf("├─%2s─┼─%-10s─┼─%-26s─┼─%-12s─┤\n", a, b, c, d)

		for _, r := range rows {
			fmt.Printf("│ %2s │ %-10s │ %-26s │ %-12s │\n", r.priority, r.name, r.credential, r.status)
		}

		fmt.Printf("╰─%2s─┴─%-10s─┴─%-26s─┴─%-12s─╯\n", a, b, c, d)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
