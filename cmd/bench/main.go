// Command bench runs the producer-consumer hand-off engine over a matrix of
// buffer variants, capacities, and item counts, printing per-run summaries
// and optionally exporting sessions as JSON for graphing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/queuelab/handoff/internal/engine"
	"github.com/queuelab/handoff/pkg/config"
	"github.com/queuelab/handoff/pkg/report"
	"github.com/queuelab/handoff/pkg/sales"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML run configuration")
	capacityFlag := flag.Int("capacity", 0, "If non-zero, test only this buffer capacity")
	itemsFlag := flag.Int("items", -1, "If non-negative, test only this item count")
	iterFlag := flag.Int("iter", 0, "If non-zero, override the number of iterations per scenario")
	variantFlag := flag.String("variant", "", "Run only the named buffer variant (chanqueue, condqueue)")
	jsonExport := flag.Bool("json", false, "Append session results to the JSON results file")
	jsonFileForMarkdown := flag.String("jsonfile", "test-results.json", "Path to JSON file for markdown table")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from the JSON results file and exit")
	progressFlag := flag.Bool("progress", false, "Display a progress bar")
	verboseFlag := flag.Bool("verbose", false, "Echo full analysis reports and per-item traces")
	salesFile := flag.String("sales", "", "Run the sales CSV analysis on the given file and exit")
	flag.Parse()

	if *markdownTable {
		outputMarkdownTable(*jsonFileForMarkdown)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *capacityFlag > 0 {
		cfg.Capacities = []int{*capacityFlag}
	}
	if *itemsFlag >= 0 {
		cfg.ItemCounts = []int{*itemsFlag}
	}
	if *iterFlag > 0 {
		cfg.Iterations = *iterFlag
	}
	if *variantFlag != "" {
		cfg.Variants = []string{*variantFlag}
	}

	if *salesFile != "" {
		runSalesAnalysis(*salesFile, cfg.ResultsDir)
		return
	}

	variants := selectVariants(cfg.Variants)
	if len(variants) == 0 {
		fmt.Fprintf(os.Stderr, "No buffer variant matches %v\n", cfg.Variants)
		os.Exit(1)
	}

	totalRuns := len(variants) * len(cfg.Capacities) * len(cfg.ItemCounts) * cfg.Iterations
	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.Default(int64(totalRuns), "benchmarking")
	}

	var records []report.RunRecord
	for _, variant := range variants {
		fmt.Printf("\n=============================\n")
		fmt.Printf("Variant: %s (%s)\n", variant.Name, variant.PkgName)
		fmt.Printf("=============================\n")

		for _, capacity := range cfg.Capacities {
			sink := &report.FileSink{
				Dir:      cfg.ResultsDir,
				FileName: fmt.Sprintf("%s_results.txt", variant.PkgName),
			}
			if *verboseFlag {
				sink.Echo = os.Stdout
			}
			opts := []engine.Option{
				engine.WithVariant(variant),
				engine.WithReporter(&report.Printer{Sink: sink}),
			}
			if *verboseFlag {
				opts = append(opts, engine.WithLogOutput(os.Stdout), engine.WithVerbose(true))
			}
			eng, err := engine.New(capacity, opts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error constructing engine: %v\n", err)
				os.Exit(1)
			}

			for _, itemCount := range cfg.ItemCounts {
				for iteration := 1; iteration <= cfg.Iterations; iteration++ {
					res, err := eng.Run(itemCount)
					if err != nil {
						fmt.Fprintf(os.Stderr, "Error running scenario: %v\n", err)
						os.Exit(1)
					}
					fmt.Printf("  capacity=%d items=%d => produced=%d, consumed=%d, maxOcc=%d, verified=%v, took=%v\n",
						capacity, itemCount, res.Stats.Produced, res.Stats.Consumed,
						res.Stats.MaxOccupancy, res.Verified, res.Stats.Elapsed)
					records = append(records, report.NewRunRecord(res))
					if bar != nil {
						bar.Add(1)
					}
				}
			}
		}
	}

	if *jsonExport {
		session := report.Session{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  report.GatherSystemInfo(),
			Runs:        records,
		}
		if err := report.AppendSessions(cfg.JSONFile, []report.Session{session}); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote results to %s\n", cfg.JSONFile)
	}
}

// selectVariants filters the registry by the configured names; nil or empty
// means all variants.
func selectVariants(names []string) []engine.Variant {
	if len(names) == 0 {
		return engine.Variants()
	}
	var out []engine.Variant
	for _, name := range names {
		if v, ok := engine.LookupVariant(name); ok {
			out = append(out, v)
		} else {
			fmt.Fprintf(os.Stderr, "Unknown variant %q, skipping\n", name)
		}
	}
	return out
}

// runSalesAnalysis loads the CSV, prints the analysis, and appends it to the
// results directory.
func runSalesAnalysis(path, resultsDir string) {
	records, err := sales.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading sales data: %v\n", err)
		os.Exit(1)
	}
	analyzer := sales.NewAnalyzer(records)
	sink := &report.FileSink{
		Dir:      resultsDir,
		FileName: "sales_analysis_results.txt",
		Echo:     os.Stdout,
	}
	if err := sink.Write(analyzer.FormatReport()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing sales report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sales analysis saved under %s\n", resultsDir)
}

// outputMarkdownTable loads the JSON results file and prints a summary table
// for the last session.
func outputMarkdownTable(jsonFile string) {
	sessions, err := report.LoadSessions(jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %q: %v\n", jsonFile, err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found in JSON.")
		os.Exit(1)
	}
	last := sessions[len(sessions)-1]

	type agg struct {
		runs        int
		verified    int
		utilization float64
		prodWaitNs  int64
		consWaitNs  int64
		consumed    int64
	}
	byVariant := make(map[string]*agg)
	var order []string
	for _, run := range last.Runs {
		a, ok := byVariant[run.Variant]
		if !ok {
			a = &agg{}
			byVariant[run.Variant] = a
			order = append(order, run.Variant)
		}
		a.runs++
		if run.Verified {
			a.verified++
		}
		a.utilization += run.UtilizationPct
		a.prodWaitNs += run.ProducerWaitNs
		a.consWaitNs += run.ConsumerWaitNs
		a.consumed += run.ItemsConsumed
	}

	fmt.Println("## Last Session Summary")
	fmt.Println()
	fmt.Println("| Variant                     | Package    | Features                          | Runs | Verified | Avg Utilization | Wait/Item (prod/cons) |")
	fmt.Println("|-----------------------------|------------|-----------------------------------|------|----------|-----------------|-----------------------|")
	for _, name := range order {
		a := byVariant[name]
		var pkgName, features string
		if v, ok := engine.LookupVariant(name); ok {
			pkgName = v.PkgName
			features = strings.Join(v.Features, ", ")
		}
		var prodPerItem, consPerItem time.Duration
		if a.consumed > 0 {
			prodPerItem = time.Duration(a.prodWaitNs / a.consumed)
			consPerItem = time.Duration(a.consWaitNs / a.consumed)
		}
		fmt.Printf("| %-27s | %-10s | %-33s | %4d | %3d/%-4d | %14.1f%% | %10v / %-10v |\n",
			name, pkgName, features, a.runs, a.verified, a.runs,
			a.utilization/float64(a.runs), prodPerItem, consPerItem)
	}
}
