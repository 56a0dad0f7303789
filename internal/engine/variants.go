package engine

import (
	"github.com/queuelab/handoff/internal/buffer"
	"github.com/queuelab/handoff/pkg/chanqueue"
	"github.com/queuelab/handoff/pkg/condqueue"
)

// Variant describes one interchangeable bounded buffer strategy.
type Variant struct {
	Name        string
	PkgName     string
	Description string
	Features    []string
	NewBuffer   func(capacity int) buffer.Buffer[int]
}

// Variants enumerates the available buffer strategies.
func Variants() []Variant {
	return []Variant{
		{
			Name:        "Buffered Channel",
			PkgName:     "chanqueue",
			Description: "Delegates all blocking to a buffered Go channel; contributes no synchronization logic of its own.",
			Features:    []string{"SPSC", "FIFO", "Blocking"},
			NewBuffer: func(capacity int) buffer.Buffer[int] {
				return chanqueue.New[int](capacity)
			},
		},
		{
			Name:        "Mutex + Condition Variable",
			PkgName:     "condqueue",
			Description: "Hand-rolled wait/notify protocol over a ring buffer, with predicate-recheck loops on every wakeup.",
			Features:    []string{"SPSC", "FIFO", "Blocking", "Hand-Rolled"},
			NewBuffer: func(capacity int) buffer.Buffer[int] {
				return condqueue.New[int](capacity)
			},
		},
	}
}

// LookupVariant finds a variant by Name or PkgName.
func LookupVariant(name string) (Variant, bool) {
	for _, v := range Variants() {
		if v.Name == name || v.PkgName == name {
			return v, true
		}
	}
	return Variant{}, false
}

func defaultVariant() Variant {
	return Variants()[0]
}
