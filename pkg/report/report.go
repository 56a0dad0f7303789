// Package report turns run results into human-readable analysis reports and
// persists them. The engine hands over raw statistics; everything about
// formatting, console echo, and file I/O lives here.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/queuelab/handoff/internal/engine"
)

// Sink accepts a fully formatted statistics report.
type Sink interface {
	Write(report string) error
}

// FileSink echoes reports to Echo (if set) and appends them to a file under
// Dir. The directory is created on first write.
type FileSink struct {
	Dir      string
	FileName string
	Echo     io.Writer
}

func (s *FileSink) Write(report string) error {
	if s.Echo != nil {
		fmt.Fprint(s.Echo, report)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	path := filepath.Join(s.Dir, s.FileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening results file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(report); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}

// Printer adapts a Sink to the engine's Reporter interface.
type Printer struct {
	Sink Sink
}

func (p *Printer) Report(res engine.Result) {
	if p.Sink == nil {
		return
	}
	if err := p.Sink.Write(Format(res)); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
	}
}

// Format renders the performance analysis report for one run.
func Format(res engine.Result) string {
	var b strings.Builder
	sep := strings.Repeat("=", 60)
	s := res.Stats

	fmt.Fprintf(&b, "\n%s\n", sep)
	fmt.Fprintf(&b, "PERFORMANCE ANALYSIS RESULTS\n")
	fmt.Fprintf(&b, "Implementation: %s\n", res.Variant)
	fmt.Fprintf(&b, "Timestamp: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s\n", sep)

	fmt.Fprintf(&b, "\n--- Basic Statistics ---\n")
	fmt.Fprintf(&b, "Buffer Capacity: %d\n", res.Capacity)
	fmt.Fprintf(&b, "Items Produced: %d\n", s.Produced)
	fmt.Fprintf(&b, "Items Consumed: %d\n", s.Consumed)
	fmt.Fprintf(&b, "Items Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "Max Occupancy Reached: %d\n", s.MaxOccupancy)

	fmt.Fprintf(&b, "\n--- Timing Analysis ---\n")
	fmt.Fprintf(&b, "Total Execution Time: %v\n", s.Elapsed)
	if s.Consumed > 0 {
		fmt.Fprintf(&b, "Average Time per Item: %v\n", s.Elapsed/time.Duration(s.Consumed))
	}
	fmt.Fprintf(&b, "Total Producer Wait Time: %v\n", s.ProducerWait)
	fmt.Fprintf(&b, "Total Consumer Wait Time: %v\n", s.ConsumerWait)
	fmt.Fprintf(&b, "Average Producer Wait per Item: %v\n", s.AvgProducerWait())
	fmt.Fprintf(&b, "Average Consumer Wait per Item: %v\n", s.AvgConsumerWait())

	fmt.Fprintf(&b, "\n--- Buffer Utilization ---\n")
	util := s.Utilization(res.Capacity)
	fmt.Fprintf(&b, "Buffer Utilization Rate: %.2f%%\n", util)
	fmt.Fprintf(&b, "Buffer Efficiency: %s\n", efficiency(util))

	fmt.Fprintf(&b, "\n--- Data Integrity Analysis ---\n")
	fmt.Fprintf(&b, "Data Match: %s\n", passFail(res.Verified))
	fmt.Fprintf(&b, "No Data Loss: %s\n", passFail(s.Produced == s.Consumed))

	fmt.Fprintf(&b, "\n--- Synchronization Analysis ---\n")
	if s.Balanced() {
		fmt.Fprintf(&b, "Producer-Consumer Balance: balanced\n")
	} else {
		fmt.Fprintf(&b, "Producer-Consumer Balance: imbalanced\n")
	}
	if s.ProducerWait > 0 || s.ConsumerWait > 0 {
		fmt.Fprintf(&b, "Blocking Behavior: observed (roles blocked when needed)\n")
	} else {
		fmt.Fprintf(&b, "Blocking Behavior: none observed\n")
	}
	for _, failure := range res.RoleFailures {
		fmt.Fprintf(&b, "Role Failure: %v\n", failure)
	}

	fmt.Fprintf(&b, "\n%s\n\n", sep)
	return b.String()
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func efficiency(utilization float64) string {
	switch {
	case utilization > 80:
		return "High"
	case utilization > 50:
		return "Medium"
	default:
		return "Low"
	}
}
