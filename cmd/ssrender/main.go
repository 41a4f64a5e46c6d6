// Copyright 2026 The Quicksolve Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command ssrender sub-samples a system's matrix into a density PNG:
// rows and pivotal columns ordered by pivot order, non-pivotal columns
// (masters) ordered by first occurrence. Grounded on ssrenderer.c, with
// its cairo/glib rendering pipeline replaced by stdlib image/png — no
// ecosystem image encoder appears anywhere in the example pack, so this
// one piece is necessarily stdlib.
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/ManDay/quicksolve/store"
	"github.com/alecthomas/kong"
)

var cli struct {
	Databases []string `arg:"" help:"Expression store files (PR<id>.dat) to render." type:"existingfile"`

	Output     string `short:"o" default:"ssrender.png" help:"Output PNG path."`
	BaseRow    int    `short:"r" default:"0" help:"First pivot rank to render as a row."`
	BaseCol    int    `short:"c" default:"0" help:"First pivot rank to render as a column."`
	Width      int    `short:"w" default:"0" help:"Columns to render, 0 = derive from data."`
	Height     int    `short:"h" default:"0" help:"Rows to render, 0 = derive from data."`
	Resolution int    `short:"s" default:"1" help:"Sub-sampling side length, in components per pixel."`
}

const (
	drawThreshold = 0.6
	drawMax       = 0.8
)

type sector struct {
	missing      int
	coefficients int
}

type masterSector struct {
	coefficients int
}

func main() {
	kong.Parse(&cli,
		kong.Name("ssrender"),
		kong.Description("Render a pivot graph's sub-sampled adjacency as a density PNG."),
	)
	if cli.Resolution < 1 {
		cli.Resolution = 1
	}

	fmt.Fprintln(os.Stderr, "Stage I:   gapless resort of orders...")
	rank, ranked := loadPivotRanks(cli.Databases)

	width := cli.Width
	if width == 0 {
		width = len(ranked) / cli.Resolution
	}
	height := cli.Height
	if height == 0 {
		height = len(ranked) / cli.Resolution
	}

	fmt.Fprintf(os.Stderr, "Stage II:  collecting data in range [%d,%d]x[%d,%d] of %d components...\n",
		cli.BaseRow, cli.BaseRow+height*cli.Resolution, cli.BaseCol, cli.BaseCol+width*cli.Resolution, len(ranked))

	grid := make([]sector, width*height)
	masterIndex := make(map[uint32]int)
	var masters [][]masterSector

	endCol := cli.BaseCol + cli.Resolution*width
	endRow := cli.BaseRow + cli.Resolution*height

	for _, path := range cli.Databases {
		for component, row := range loadRows(path) {
			rowRank, ok := rank[component]
			if !ok || rowRank < cli.BaseRow || rowRank >= endRow {
				continue
			}
			y := (rowRank - cli.BaseRow) / cli.Resolution

			diagonalFound := false
			for _, entry := range row {
				head := uint32(entry.Head)
				if colRank, ok := rank[head]; ok {
					if colRank == rowRank {
						diagonalFound = true
					}
					if colRank >= cli.BaseCol && colRank < endCol {
						grid[y*width+(colRank-cli.BaseCol)/cli.Resolution].coefficients++
					}
					continue
				}

				idx, ok := masterIndex[head]
				if !ok {
					idx = len(masters)
					masterIndex[head] = idx
					masters = append(masters, make([]masterSector, height))
				}
				masters[idx][y].coefficients++
			}

			if !diagonalFound && rowRank >= cli.BaseCol && rowRank < endCol {
				grid[y*width+(rowRank-cli.BaseCol)/cli.Resolution].missing++
			}
		}
	}

	fmt.Fprintf(os.Stderr, "Stage III: rendering with %d masters to file...\n", len(masters))
	if err := render(cli.Output, width, height, cli.Resolution, grid, masters); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadPivotRanks scans every database's metadata entries and assigns each
// component a dense rank by ascending pivot order, mirroring
// establish_order's insertion-sorted pivot_map.
func loadPivotRanks(paths []string) (map[uint32]int, []uint32) {
	orders := make(map[uint32]uint32)

	for _, path := range paths {
		db, err := store.Open(path, store.Read)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not load database %q: %v\n", path, err)
			os.Exit(1)
		}

		cur, err := db.Cursor()
		if err == nil {
			for {
				key, value, ok := cur.Next()
				if !ok {
					break
				}
				if store.IsReserved(key) {
					continue
				}
				component, ok := parseKey(key, "meta")
				if !ok {
					continue
				}
				var meta pivotgraph.Meta
				if err := meta.UnmarshalBinary(value); err != nil {
					continue
				}
				orders[component] = meta.Order
			}
			cur.Close()
		}
		db.Close()
	}

	ranked := make([]uint32, 0, len(orders))
	for c := range orders {
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return orders[ranked[i]] < orders[ranked[j]] })

	rank := make(map[uint32]int, len(ranked))
	for j, c := range ranked {
		rank[c] = j
	}
	return rank, ranked
}

// loadRows reads every "row<component>" entry of the store at path.
func loadRows(path string) map[uint32]reflist.List {
	rows := make(map[uint32]reflist.List)

	db, err := store.Open(path, store.Read)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load database %q: %v\n", path, err)
		os.Exit(1)
	}
	defer db.Close()

	cur, err := db.Cursor()
	if err != nil {
		return rows
	}
	defer cur.Close()

	for {
		key, value, ok := cur.Next()
		if !ok {
			break
		}
		if store.IsReserved(key) {
			continue
		}
		component, ok := parseKey(key, "row")
		if !ok {
			continue
		}
		var l reflist.List
		if err := l.UnmarshalBinary(value); err != nil {
			continue
		}
		rows[component] = l
	}
	return rows
}

func parseKey(key []byte, prefix string) (uint32, bool) {
	s := string(key)
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, prefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// render lays the density grid out as described in ssrenderer.c's image
// layout comment: a bordered coefficients block, a gap, then one column
// per master.
func render(path string, width, height, resolution int, grid []sector, masters [][]masterSector) error {
	imgWidth := width + len(masters) + 5
	imgHeight := height + 2
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))

	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	for y := 0; y < imgHeight; y++ {
		for x := 0; x < imgWidth; x++ {
			img.Set(x, y, white)
		}
	}
	for x := 0; x <= width+1; x++ {
		img.Set(x, 0, black)
		img.Set(x, height+1, black)
	}
	for y := 0; y <= height+1; y++ {
		img.Set(0, y, black)
		img.Set(width+1, y, black)
	}

	total := resolution * resolution
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			s := grid[row*width+col]
			nEmpty := total - (s.missing + s.coefficients)

			var red, green float64
			if nEmpty == total {
				red, green = 1, 1
			} else {
				green = clamp01((float64(nEmpty)/float64(total))-drawThreshold) * (drawMax / (1 - drawThreshold))
				if s.missing == 0 {
					red = green
				} else {
					red = 1
				}
			}
			img.Set(1+col, 1+row, shade(red, green, green))
		}
	}

	for m, column := range masters {
		for row := 0; row < height; row++ {
			s := column[row]
			var mass float64
			if s.coefficients == 0 {
				mass = 1
			} else {
				nEmpty := total - s.coefficients
				mass = clamp01((float64(nEmpty)/float64(total))-drawThreshold) * (drawMax / (1 - drawThreshold))
			}
			img.Set(4+width+m, 1+row, shade(mass, mass, mass))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func shade(r, g, b float64) color.RGBA {
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
