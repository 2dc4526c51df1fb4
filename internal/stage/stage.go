package stage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned for edges outside the stage graph.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Stage is a workflow phase.
type Stage string

const (
	Ingestion    Stage = "ingestion"
	Preparation  Stage = "preparation"
	Verification Stage = "verification"
	Complete     Stage = "complete"
)

var order = []Stage{Ingestion, Preparation, Verification, Complete}

// All returns the stages in forward order.
func All() []Stage {
	return append([]Stage(nil), order...)
}

var edges = map[Stage][]Stage{
	Ingestion:    {Preparation},
	Preparation:  {Verification, Ingestion},
	Verification: {Complete, Ingestion},
}

// Parse normalizes raw into a Stage.
func Parse(raw string) (Stage, bool) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range order {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether from → to is an edge of the stage graph.
func CanTransition(from, to Stage) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Targets lists the stages reachable from s in one step.
func Targets(s Stage) []Stage {
	return append([]Stage(nil), edges[s]...)
}

func checkTransition(from, to Stage) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Locked reports whether the session is treated as a golden master.
func (s Stage) Locked() bool { return s == Complete }

func (s Stage) String() string { return string(s) }

// WizardStep is a step of the ingestion wizard.
type WizardStep int

const (
	StepStart WizardStep = iota + 1
	StepDeliverables
	StepProcessing
	StepReview
)

func (w WizardStep) String() string {
	switch w {
	case StepStart:
		return "start"
	case StepDeliverables:
		return "deliverables"
	case StepProcessing:
		return "processing"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(w))
	}
}
