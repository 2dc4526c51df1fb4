package content

// Lifecycle is an ordered list of steps with a cursor.
type Lifecycle struct {
	Steps       []string `json:"steps"`
	CurrentStep int      `json:"currentStep"`
}

// DefaultLifecycle is used when generated steps cannot be parsed.
func DefaultLifecycle() Lifecycle {
	return Lifecycle{
		Steps:       []string{"Design Review", "Engineering", "Prototyping", "Validation", "Production Launch"},
		CurrentStep: 0,
	}
}

// Clamp forces CurrentStep into [0, len(Steps)-1], or 0 when there are no steps.
func (l Lifecycle) Clamp() Lifecycle {
	out := Lifecycle{Steps: append([]string{}, l.Steps...), CurrentStep: l.CurrentStep}
	if len(out.Steps) == 0 || out.CurrentStep < 0 {
		out.CurrentStep = 0
		return out
	}
	if out.CurrentStep > len(out.Steps)-1 {
		out.CurrentStep = len(out.Steps) - 1
	}
	return out
}

// Move shifts the cursor by delta, clamped. No-op for empty steps.
func (l Lifecycle) Move(delta int) Lifecycle {
	if len(l.Steps) == 0 {
		return l
	}
	moved := l.Clamp()
	moved.CurrentStep += delta
	return moved.Clamp()
}

// Next advances one step.
func (l Lifecycle) Next() Lifecycle { return l.Move(1) }

// Prev goes back one step.
func (l Lifecycle) Prev() Lifecycle { return l.Move(-1) }

// Current returns the label under the cursor.
func (l Lifecycle) Current() (string, bool) {
	if len(l.Steps) == 0 {
		return "", false
	}
	c := l.Clamp()
	return c.Steps[c.CurrentStep], true
}

// Empty reports whether there are no steps.
func (l Lifecycle) Empty() bool { return len(l.Steps) == 0 }
