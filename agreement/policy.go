package agreement

import (
	"fmt"
	"strings"
)

// CompletionPolicy decides who may mark an active agreement completed.
type CompletionPolicy string

const (
	CompleteByParty    CompletionPolicy = "party"
	CompleteBySender   CompletionPolicy = "sender"
	CompleteByReceiver CompletionPolicy = "receiver"
	// CompleteByAnyone lets any authenticated user complete an agreement.
	CompleteByAnyone CompletionPolicy = "anyone"
)

// ParseCompletionPolicy maps a configured name to a policy. An empty name
// selects CompleteByParty.
func ParseCompletionPolicy(name string) (CompletionPolicy, error) {
	switch p := CompletionPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return CompleteByParty, nil
	case CompleteByParty, CompleteBySender, CompleteByReceiver, CompleteByAnyone:
		return p, nil
	default:
		return "", fmt.Errorf("agreement: unknown completion policy %q", name)
	}
}

func (p CompletionPolicy) authorize(a Agreement, actorID string) error {
	var ok bool
	switch p {
	case CompleteByAnyone:
		ok = actorID != ""
	case CompleteBySender:
		ok = actorID == a.SenderID
	case CompleteByReceiver:
		ok = actorID == a.ReceiverID
	default:
		ok = a.IsParty(actorID)
	}
	if !ok {
		return ErrNotAllowedToComplete
	}
	return nil
}

func requireReceiver(a Agreement, actorID string) error {
	if actorID != a.ReceiverID {
		return ErrReceiverOnly
	}
	return nil
}

func requireParty(a Agreement, actorID string) error {
	if !a.IsParty(actorID) {
		return ErrNotParty
	}
	return nil
}
