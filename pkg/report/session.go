package report

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/queuelab/handoff/internal/engine"
)

// RunRecord holds the exportable outcome of one run.
type RunRecord struct {
	Variant        string  `json:"variant"`
	Capacity       int     `json:"capacity"`
	ItemsProduced  int64   `json:"items_produced"`
	ItemsConsumed  int64   `json:"items_consumed"`
	ItemsSkipped   int64   `json:"items_skipped,omitempty"`
	ProducerWaitNs int64   `json:"producer_wait_ns"`
	ConsumerWaitNs int64   `json:"consumer_wait_ns"`
	MaxOccupancy   int     `json:"max_occupancy"`
	UtilizationPct float64 `json:"utilization_pct"`
	Elapsed        string  `json:"elapsed"`
	Verified       bool    `json:"verified"`
	Timestamp      int64   `json:"timestamp"`
	GoVersion      string  `json:"go_version"`
}

// SystemInfo holds basic host information attached to each session.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH      string  `json:"go_arch"`
	TotalMemory uint64  `json:"total_memory_bytes,omitempty"`
}

// Session represents one complete bench invocation.
type Session struct {
	SessionTime string      `json:"session_time"`
	SystemInfo  SystemInfo  `json:"system_info"`
	Runs        []RunRecord `json:"runs"`
}

// NewRunRecord converts a run result into its exportable form.
func NewRunRecord(res engine.Result) RunRecord {
	s := res.Stats
	return RunRecord{
		Variant:        res.Variant,
		Capacity:       res.Capacity,
		ItemsProduced:  s.Produced,
		ItemsConsumed:  s.Consumed,
		ItemsSkipped:   s.Skipped,
		ProducerWaitNs: s.ProducerWait.Nanoseconds(),
		ConsumerWaitNs: s.ConsumerWait.Nanoseconds(),
		MaxOccupancy:   s.MaxOccupancy,
		UtilizationPct: s.Utilization(res.Capacity),
		Elapsed:        s.Elapsed.String(),
		Verified:       res.Verified,
		Timestamp:      time.Now().Unix(),
		GoVersion:      runtime.Version(),
	}
}

// GatherSystemInfo collects basic CPU and memory details.
func GatherSystemInfo() SystemInfo {
	info := SystemInfo{
		NumCPU: runtime.NumCPU(),
		GOARCH: runtime.GOARCH,
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
		info.CPUSpeedMHz = infos[0].Mhz
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
	}
	return info
}

// AppendSessions appends the given sessions to an existing JSON results file,
// or creates it if absent.
func AppendSessions(filename string, sessions []Session) error {
	var previous []Session
	if _, err := os.Stat(filename); err == nil {
		data, err := os.ReadFile(filename)
		if err == nil && len(data) > 0 {
			// A malformed existing file starts a fresh series.
			json.Unmarshal(data, &previous)
		}
	}
	updated := append(previous, sessions...)
	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling sessions: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing sessions file: %w", err)
	}
	return nil
}

// LoadSessions reads a JSON results file.
func LoadSessions(filename string) ([]Session, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading sessions file: %w", err)
	}
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshalling sessions: %w", err)
	}
	return sessions, nil
}
