// Package tracking derives an order's delivery stage from the time elapsed since
// it was placed, and re-checks it on a fixed interval until delivery.
package tracking

import (
	"strings"
	"time"
)

// Stage is a delivery step.
type Stage string

const (
	Received       Stage = "received"
	Preparing      Stage = "preparing"
	Baking         Stage = "baking"
	OutForDelivery Stage = "out_for_delivery"
	Delivered      Stage = "delivered"
)

// Stages lists every stage in delivery order.
var Stages = []Stage{Received, Preparing, Baking, OutForDelivery, Delivered}

// thresholds[i] is the elapsed time at which Stages[i] begins.
var thresholds = []time.Duration{0, 1 * time.Minute, 3 * time.Minute, 5 * time.Minute, 6 * time.Minute}

// CurrentStage returns the last stage whose threshold does not exceed the time
// elapsed between createdAt and now. It never moves backwards as now advances.
func CurrentStage(createdAt, now time.Time) Stage {
	elapsed := now.Sub(createdAt)
	stage := Received
	for i, th := range thresholds {
		if elapsed >= th {
			stage = Stages[i]
		}
	}
	return stage
}

// Index is the position of s in Stages, or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether s ends tracking.
func (s Stage) Terminal() bool { return s == Delivered }

// Label is the display form, e.g. "Out For Delivery".
func (s Stage) Label() string {
	words := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Reached reports whether the progress indicator for s is lit while the order
// is in current.
func Reached(current, s Stage) bool {
	i := s.Index()
	return i >= 0 && i <= current.Index()
}

// Indicator is one step of the progress bar.
type Indicator struct {
	Stage  Stage  `json:"stage"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Indicators returns the progress bar for an order in current.
func Indicators(current Stage) []Indicator {
	out := make([]Indicator, len(Stages))
	for i, s := range Stages {
		out[i] = Indicator{Stage: s, Label: s.Label(), Active: Reached(current, s)}
	}
	return out
}
