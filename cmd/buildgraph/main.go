// Command buildgraph renders graphs from exported bench sessions: wait time
// per item versus transfer volume, one plot per buffer capacity, one series
// per buffer variant.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/queuelab/handoff/pkg/report"
)

// seriesStats holds the spread of wait-per-item samples at one volume level.
type seriesStats struct {
	x      float64 // category index on the X axis
	volume float64 // original item volume
	min    float64
	median float64
	max    float64
}

// statsPoints implements plotter.XYer and plotter.YErrorer so each series
// can be drawn as line + scatter + error bars.
type statsPoints []seriesStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].min, s[i].max - s[i].median
}

// categoryTicks renders the item volumes as evenly spaced categories.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing bench sessions")
	outputPrefix := flag.String("out", "handoff_graph", "Output graph image filename prefix")
	flag.Parse()

	sessions, err := report.LoadSessions(*jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading sessions: %v\n", err)
		os.Exit(1)
	}

	// capacity -> variant -> item volume -> wait-per-item samples (ns)
	byCapacity := make(map[int]map[string]map[float64][]float64)
	for _, session := range sessions {
		for _, run := range session.Runs {
			if run.ItemsConsumed == 0 {
				continue
			}
			waitPerItem := float64(run.ProducerWaitNs+run.ConsumerWaitNs) / float64(run.ItemsConsumed)
			volume := float64(run.ItemsConsumed)

			variants, ok := byCapacity[run.Capacity]
			if !ok {
				variants = make(map[string]map[float64][]float64)
				byCapacity[run.Capacity] = variants
			}
			samples, ok := variants[run.Variant]
			if !ok {
				samples = make(map[float64][]float64)
				variants[run.Variant] = samples
			}
			samples[volume] = append(samples[volume], waitPerItem)
		}
	}

	for capacity, variants := range byCapacity {
		if err := renderPlot(capacity, variants, *outputPrefix); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering plot for capacity %d: %v\n", capacity, err)
		}
	}
}

func renderPlot(capacity int, variants map[string]map[float64][]float64, outputPrefix string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Wait per Item vs. Transfer Volume (capacity %d)", capacity)
	p.X.Label.Text = "Items Transferred"
	p.Y.Label.Text = "Wait per Item (ns)"
	p.Add(plotter.NewGrid())

	// Dark theme.
	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white

	// Build the union of item volumes across variants as X categories.
	volumeSet := make(map[float64]struct{})
	for _, samples := range variants {
		for volume := range samples {
			volumeSet[volume] = struct{}{}
		}
	}
	volumes := make([]float64, 0, len(volumeSet))
	for v := range volumeSet {
		volumes = append(volumes, v)
	}
	sort.Float64s(volumes)

	volumeIndex := make(map[float64]float64, len(volumes))
	positions := make([]float64, len(volumes))
	labels := make([]string, len(volumes))
	for i, v := range volumes {
		volumeIndex[v] = float64(i)
		positions[i] = float64(i)
		labels[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	p.X.Tick.Marker = categoryTicks{positions: positions, labels: labels}

	var names []string
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)

	colors := plotutil.SoftColors
	shapes := []draw.GlyphDrawer{
		draw.CircleGlyph{},
		draw.SquareGlyph{},
		draw.TriangleGlyph{},
	}

	// Nudge each variant sideways so overlapping series stay readable.
	offsetRange := 0.3
	offsetStep := offsetRange / float64(len(names))
	startOffset := -offsetRange/2 + offsetStep/2

	for i, name := range names {
		stats := buildStats(variants[name])
		if len(stats) == 0 {
			continue
		}
		for j := range stats {
			stats[j].x = volumeIndex[stats[j].volume] + startOffset + float64(i)*offsetStep
		}
		sort.Slice(stats, func(a, b int) bool { return stats[a].x < stats[b].x })
		sp := statsPoints(stats)

		line, err := plotter.NewLine(sp)
		if err != nil {
			return err
		}
		line.Color = colors[i%len(colors)]

		points, err := plotter.NewScatter(sp)
		if err != nil {
			return err
		}
		points.GlyphStyle.Radius = vg.Points(4)
		points.Color = colors[i%len(colors)]
		points.Shape = shapes[i%len(shapes)]

		errBars, err := plotter.NewYErrorBars(sp)
		if err != nil {
			return err
		}
		errBars.Color = colors[i%len(colors)]

		p.Add(line, points, errBars)
		p.Legend.Add(name, line, points)
	}

	filename := fmt.Sprintf("%s_cap%d.png", outputPrefix, capacity)
	if err := p.Save(10*vg.Inch, 7*vg.Inch, filename); err != nil {
		return err
	}
	fmt.Printf("Graph for capacity %d saved to %s\n", capacity, filename)
	return nil
}

// buildStats reduces raw samples per volume to min, median, and max.
func buildStats(samples map[float64][]float64) []seriesStats {
	var out []seriesStats
	for volume, vals := range samples {
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out = append(out, seriesStats{
			volume: volume,
			min:    vals[0],
			median: median(vals),
			max:    vals[len(vals)-1],
		})
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}
