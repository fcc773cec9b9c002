// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/ZisisKostakakis/property-pal-scraper/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
