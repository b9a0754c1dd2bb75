package agreement

import "fmt"

// transitions is the complete lifecycle. Statuses with no entry are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusDeclined, StatusDisputed},
	StatusActive:  {StatusCompleted, StatusDisputed},
}

var allStatuses = []Status{StatusPending, StatusActive, StatusCompleted, StatusDeclined, StatusDisputed}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func validateTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
