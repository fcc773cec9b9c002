// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ZisisKostakakis/property-pal-scraper/config"
	"github.com/ZisisKostakakis/property-pal-scraper/geocode"
	"github.com/ZisisKostakakis/property-pal-scraper/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// resolveCellRes is the H3 resolution printed next to resolved points,
// roughly a city block.
const resolveCellRes = 9

var resolveOptions struct {
	Lenient bool
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <address>...",
	Short: "Resolve addresses to coordinates",
	Long: `Resolves each address and prints it followed by its coordinates and the
H3 cell containing them.

$ propertypal resolve "Belfast, UK"
Belfast, UK	54.597300,-5.930100	89195da49b7ffff
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc, err := newService(ctx, cfg, openCache(cfg))
		if err != nil {
			return err
		}

		for _, address := range args {
			var p *spatial.Point
			if resolveOptions.Lenient {
				p = svc.ResolveLenient(ctx, address)
			} else {
				p = svc.Resolve(ctx, address)
			}

			if p == nil {
				fmt.Printf("%s\tunresolved\n", address)

				continue
			}

			cell, err := p.Cell(resolveCellRes)
			if err != nil {
				return err
			}

			fmt.Printf("%s\t%s\t%s\n", address, p, cell)
		}

		return ctx.Err()
	},
}

var distanceOptions struct {
	To          string
	Destination string
}

// destination returns the point distances are measured to: --to
// coordinates, or else the destination address resolved leniently.
func destination(ctx context.Context, cfg *config.Config, svc *geocode.Service) (spatial.Point, error) {
	if distanceOptions.To != "" {
		return spatial.ParsePoint(distanceOptions.To)
	}

	address := distanceOptions.Destination
	if address == "" {
		address = cfg.Destination
	}

	if address == "" {
		return spatial.Point{}, errors.New("no destination: use --to, --destination or set DESTINATION")
	}

	log.Printf("Geocoding destination: %s", address)

	p := svc.ResolveLenient(ctx, address)
	if p == nil {
		return spatial.Point{}, fmt.Errorf("could not geocode destination %q, try a simpler one like 'Belfast, UK'", address)
	}

	log.Printf("Destination coordinates: %s", p)

	return *p, nil
}

var distanceCmd = &cobra.Command{
	Use:   "distance <address>...",
	Short: "Distance in kilometers from addresses to the destination",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc, err := newService(ctx, cfg, openCache(cfg))
		if err != nil {
			return err
		}

		dest, err := destination(ctx, cfg, svc)
		if err != nil {
			return err
		}

		for _, address := range args {
			if km, ok := svc.Distance(ctx, address, dest); ok {
				fmt.Printf("%s\t%.2f\n", address, km)
			} else {
				fmt.Printf("%s\tunresolved\n", address)
			}
		}

		return ctx.Err()
	},
}

// batchRow is one line of batch output.
type batchRow struct {
	Address string
	Point   *spatial.Point
	Km      float64
	HasKm   bool
}

func (r batchRow) String() string {
	fields := []string{r.Address, "", "", ""}

	if r.Point != nil {
		fields[1] = strconv.FormatFloat(r.Point.Lat, 'f', 6, 64)
		fields[2] = strconv.FormatFloat(r.Point.Lng, 'f', 6, 64)
	}

	if r.HasKm {
		fields[3] = strconv.FormatFloat(r.Km, 'f', 2, 64)
	}

	return strings.Join(fields, "\t")
}

// readAddresses returns the non blank lines of r.
func readAddresses(r io.Reader) ([]string, error) {
	var ret []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ret = append(ret, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading addresses: %w", err)
	}

	return ret, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Resolve one address per line and print a TSV report",
	Long: `Reads one address per line from the file, or stdin, and prints a
tab separated line per address: address, latitude, longitude and, when a
destination is configured, the distance to it in kilometers. Addresses are
resolved leniently, falling back to their postcode or area.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input := os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening addresses: %w", err)
			}
			defer f.Close()

			input = f
		} else if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter addresses to resolve, one per line…")
		}

		addresses, err := readAddresses(input)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// a provider blocking us keeps doing so for the rest of the batch
		svc, err := newService(ctx, cfg, openCache(cfg), geocode.WithDisableOnTerminal())
		if err != nil {
			return err
		}

		var dest *spatial.Point
		if distanceOptions.To != "" || distanceOptions.Destination != "" || cfg.Destination != "" {
			p, err := destination(ctx, cfg, svc)
			if err != nil {
				return err
			}

			dest = &p
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(addresses),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var resolved int

		for _, address := range addresses {
			if ctx.Err() != nil {
				break
			}

			row := batchRow{Address: address, Point: svc.ResolveLenient(ctx, address)}
			if row.Point != nil {
				resolved++

				if dest != nil {
					row.Km, row.HasKm = row.Point.DistanceKm(dest), true
				}
			}

			if bar != nil {
				if err := bar.Add(1); err != nil {
					return fmt.Errorf("updating progress bar: %w", err)
				}
			}

			fmt.Println(row)
		}

		log.Printf("Resolved %d of %d addresses", resolved, len(addresses))

		return ctx.Err()
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(distanceCmd)
	rootCmd.AddCommand(batchCmd)

	resolveCmd.Flags().BoolVar(
		&resolveOptions.Lenient,
		"lenient",
		false,
		"Fall back to the postcode or area when the full address is unknown",
	)

	for _, c := range []*cobra.Command{distanceCmd, batchCmd} {
		c.Flags().StringVar(
			&distanceOptions.To,
			"to",
			"",
			`Destination coordinates as "lat,lng"`,
		)
		c.Flags().StringVar(
			&distanceOptions.Destination,
			"destination",
			"",
			"Destination address, defaults to DESTINATION",
		)
	}
}
