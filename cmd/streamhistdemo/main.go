// Command streamhistdemo builds a streaming histogram from a column of
// numbers on stdin and prints its serialized form plus a few queries.
// It exists to exercise the histogram facade end to end; the core packages
// have no CLI or logging dependency of their own.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anthonydresser/streamhist/histogram"
	"github.com/anthonydresser/streamhist/internal/logx"
)

func main() {
	bins := flag.Int("bins", 64, "maximum reservoir size")
	gapWeighted := flag.Bool("gap-weighted", false, "use log-weighted gap merge priority")
	quantilesFlag := flag.String("quantiles", "0.5,0.9,0.99", "comma-separated quantiles to report")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logx.SetLevel(logx.DebugLevel)
	}

	h, err := histogram.New(histogram.Options{Bins: *bins, GapWeighted: *gapWeighted})
	if err != nil {
		logx.Error().Printf("creating histogram: %v", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			logx.Warn().Printf("skipping unparseable line %q: %v", line, err)
			continue
		}
		if err := h.Insert(&v); err != nil {
			logx.Error().Printf("inserting %v: %v", v, err)
			os.Exit(1)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		logx.Error().Printf("reading stdin: %v", err)
		os.Exit(1)
	}

	logx.Info().Printf("inserted %d points into %d bins", count, len(h.Bins()))

	data, err := h.Serialize()
	if err != nil {
		logx.Error().Printf("serializing: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(data))

	quantiles, err := parseQuantiles(*quantilesFlag)
	if err != nil {
		logx.Error().Printf("parsing quantiles: %v", err)
		os.Exit(1)
	}
	if len(quantiles) > 0 {
		points, err := h.Percentiles(quantiles...)
		if err != nil {
			logx.Error().Printf("computing percentiles: %v", err)
			os.Exit(1)
		}
		for _, q := range quantiles {
			fmt.Printf("p%.4g\t%v\n", q*100, points[q])
		}
	}
}

func parseQuantiles(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantile %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
