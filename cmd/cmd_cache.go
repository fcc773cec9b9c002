// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"cmp"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/ZisisKostakakis/property-pal-scraper/cache"
	"github.com/spf13/cobra"
	"github.com/uber/h3-go/v4"
)

// statsCellRes groups cached points by H3 cells of about 250 km², enough to
// tell towns apart.
const statsCellRes = 5

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the geocoding cache",
}

type cellCount struct {
	cell  h3.Cell
	count int
}

// countCells tallies the unexpired positive entries of store per H3 cell,
// busiest first.
func countCells(store *cache.Store, res int) ([]cellCount, error) {
	counts := map[h3.Cell]int{}

	err := store.Each(func(_ string, e cache.Entry) error {
		if e.Coordinates == nil {
			return nil
		}

		cell, err := e.Coordinates.Cell(res)
		if err != nil {
			return err
		}

		counts[cell]++

		return nil
	})
	if err != nil {
		return nil, err
	}

	ret := make([]cellCount, 0, len(counts))
	for cell, n := range counts {
		ret = append(ret, cellCount{cell, n})
	}

	slices.SortFunc(ret, func(a, b cellCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}

		return cmp.Compare(a.cell, b.cell)
	})

	return ret, nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the cache content",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := openCache(cfg)
		stats := store.Stats()

		fmt.Printf("Cache file:  %s\n", store.Path())
		fmt.Printf("TTL:         %d days\n", cfg.Geocoding.CacheTTLDays)
		fmt.Printf("Entries:     %d\n", stats.Total)
		fmt.Printf("  resolved:  %d\n", stats.Positive)
		fmt.Printf("  failed:    %d\n", stats.Negative)
		fmt.Printf("  expired:   %d\n", stats.Expired)

		cells, err := countCells(store, statsCellRes)
		if err != nil {
			return err
		}

		if len(cells) == 0 {
			return nil
		}

		a, b := strings.Repeat("─", 15), strings.Repeat("─", 7)
		fmt.Println()
		fmt.Printf("╭─%-15s─┬─%7s─╮\n", a, b)
		fmt.Printf("│ %-15s │ %7s │\n", "H3 cell", "Entries")
		fmt.Printf("├─%-15s─┼─%7s─┤\n", a, b)

		for _, c := range cells {
			fmt.Printf("│ %-15s │ %7d │\n", c.cell, c.count)
		}

		fmt.Printf("╰─%-15s─┴─%7s─╯\n", a, b)

		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired entries",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		n := openCache(cfg).ClearExpired()
		log.Printf("Removed %d expired geocoding entries", n)

		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every entry, including failures",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := openCache(cfg)
		n := store.Len()

		if err := store.Purge(); err != nil {
			return fmt.Errorf("purging %s: %w", store.Path(), err)
		}

		log.Printf("✅ Removed %d geocoding entries", n)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
