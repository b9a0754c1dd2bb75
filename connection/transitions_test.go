package connection

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
)

// TestTransitionsKeepGraphInvariants drives random operations over a small
// population and checks the graph invariants after every step.
func TestTransitionsKeepGraphInvariants(t *testing.T) {
	ids := []string{"u0", "u1", "u2", "u3"}
	rels := make(map[string]*Relations, len(ids))
	for _, id := range ids {
		rels[id] = &Relations{UserID: id}
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 2000; step++ {
		a := rels[ids[rng.Intn(len(ids))]]
		b := rels[ids[rng.Intn(len(ids))]]
		var op string
		var err error
		switch rng.Intn(4) {
		case 0:
			op = "request"
			_, err = request(a, b, RequestPolicy{})
		case 1:
			op = "accept"
			_, err = accept(a, b)
		case 2:
			op = "decline"
			decline(a, b)
		case 3:
			op = "remove"
			disconnect(a, b)
		}
		if err != nil && !errors.Is(err, ErrSelfConnection) && !errors.Is(err, ErrAlreadyConnected) && !errors.Is(err, ErrNoPendingRequest) {
			t.Fatalf("step %d %s(%s,%s): unexpected error %v", step, op, a.UserID, b.UserID, err)
		}
		if msg := checkInvariants(rels); msg != "" {
			t.Fatalf("step %d after %s(%s,%s): %s", step, op, a.UserID, b.UserID, msg)
		}
	}
}

func checkInvariants(rels map[string]*Relations) string {
	for id, r := range rels {
		for name, set := range map[string][]string{"pending": r.Pending, "sent": r.Sent, "connections": r.Connections} {
			seen := map[string]bool{}
			for _, other := range set {
				if other == id {
					return fmt.Sprintf("%s holds itself in %s", id, name)
				}
				if seen[other] {
					return fmt.Sprintf("%s has duplicate %s in %s", id, other, name)
				}
				seen[other] = true
			}
		}
		for _, other := range r.Connections {
			if !slices.Contains(rels[other].Connections, id) {
				return fmt.Sprintf("connection %s->%s is not symmetric", id, other)
			}
			if slices.Contains(r.Pending, other) || slices.Contains(r.Sent, other) {
				return fmt.Sprintf("%s and %s are both connected and pending", id, other)
			}
		}
		for _, other := range r.Pending {
			if !slices.Contains(rels[other].Sent, id) {
				return fmt.Sprintf("pending %s<-%s has no matching sent entry", id, other)
			}
		}
		for _, other := range r.Sent {
			if !slices.Contains(rels[other].Pending, id) {
				return fmt.Sprintf("sent %s->%s has no matching pending entry", id, other)
			}
		}
	}
	return ""
}

func TestRequestRepairsHalfWrittenPair(t *testing.T) {
	requester := &Relations{UserID: "a"}
	target := &Relations{UserID: "b", Pending: []string{"a"}}

	changed, err := request(requester, target, RequestPolicy{})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !changed {
		t.Fatal("expected the missing sent entry to be written")
	}
	if !slices.Equal(requester.Sent, []string{"b"}) || !slices.Equal(target.Pending, []string{"a"}) {
		t.Fatalf("unexpected sets: sent=%v pending=%v", requester.Sent, target.Pending)
	}
}

func TestAcceptClearsCrossingRequests(t *testing.T) {
	a := &Relations{UserID: "a"}
	b := &Relations{UserID: "b"}
	if _, err := request(a, b, RequestPolicy{}); err != nil {
		t.Fatal(err)
	}
	if _, err := request(b, a, RequestPolicy{}); err != nil {
		t.Fatal(err)
	}
	if _, err := accept(b, a); err != nil {
		t.Fatalf("accept: %v", err)
	}
	for _, r := range []*Relations{a, b} {
		if len(r.Pending) != 0 || len(r.Sent) != 0 {
			t.Fatalf("%s still has pending state: %+v", r.UserID, r)
		}
		if len(r.Connections) != 1 {
			t.Fatalf("%s connections = %v", r.UserID, r.Connections)
		}
	}
}
