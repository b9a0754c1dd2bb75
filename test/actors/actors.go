// Package actors drives the domain services from concurrent goroutines.
// Actors ignore operation errors: rejected transitions are expected under
// contention and chaos kills connections mid-transaction. Correctness is
// judged afterwards by the oracles.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"marketmapper/agreement"
	"marketmapper/connection"
	"marketmapper/messaging"
)

var errNothingToMove = errors.New("actors: no agreement to move")

// Tally counts attempted and successful operations of one actor.
type Tally struct {
	Name      string
	Attempted int
	Succeeded int
}

func (t Tally) String() string {
	return fmt.Sprintf("%s: %d/%d ok", t.Name, t.Succeeded, t.Attempted)
}

func run(ctx context.Context, stop <-chan struct{}, tally *Tally, pause func() time.Duration, step func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tally.Attempted++
		if err := step(ctx); err == nil {
			tally.Succeeded++
		}
		time.Sleep(pause())
	}
}

func pair(rng *rand.Rand, users []string) (string, string) {
	a := users[rng.Intn(len(users))]
	b := users[rng.Intn(len(users))]
	return a, b
}

// Networker fires random connection operations between random users,
// including self-requests and requests to already-connected users.
func Networker(ctx context.Context, svc *connection.Service, users []string, rng *rand.Rand, tally *Tally, stop <-chan struct{}) error {
	tally.Name = "networker"
	return run(ctx, stop, tally, func() time.Duration { return time.Duration(5+rng.Intn(15)) * time.Millisecond },
		func(ctx context.Context) error {
			a, b := pair(rng, users)
			switch rng.Intn(4) {
			case 0, 1:
				return svc.RequestConnection(ctx, a, b)
			case 2:
				return svc.AcceptConnection(ctx, a, b)
			default:
				if rng.Intn(2) == 0 {
					return svc.DeclineConnection(ctx, a, b)
				}
				return svc.RemoveConnection(ctx, a, b)
			}
		})
}

// Proposer sends new agreements between random users.
func Proposer(ctx context.Context, svc *agreement.Service, users []string, rng *rand.Rand, tally *Tally, stop <-chan struct{}) error {
	tally.Name = "proposer"
	return run(ctx, stop, tally, func() time.Duration { return time.Duration(30+rng.Intn(40)) * time.Millisecond },
		func(ctx context.Context) error {
			sender, receiver := pair(rng, users)
			_, err := svc.Propose(ctx, sender, receiver, agreement.ProposeParams{
				Title:       fmt.Sprintf("Supply run %d", rng.Intn(1000)),
				Description: "Weekly delivery of stock",
				Amount:      float64(100 + rng.Intn(5000)),
				Deadline:    time.Now().AddDate(0, 1, 0),
			})
			return err
		})
}

// Mover picks an agreement of a random user and tries a random lifecycle
// move on it, as a random user. Most attempts are illegal on purpose.
func Mover(ctx context.Context, svc *agreement.Service, users []string, rng *rand.Rand, tally *Tally, stop <-chan struct{}) error {
	tally.Name = "mover"
	return run(ctx, stop, tally, func() time.Duration { return time.Duration(10+rng.Intn(20)) * time.Millisecond },
		func(ctx context.Context) error {
			owner, actor := pair(rng, users)
			list, err := svc.List(ctx, owner)
			if err != nil || len(list) == 0 {
				return errNothingToMove
			}
			a := list[rng.Intn(len(list))]
			if rng.Intn(3) > 0 {
				actor, _ = a.Counterparty(owner)
			}
			switch rng.Intn(4) {
			case 0:
				_, err = svc.Accept(ctx, a.ID, actor)
			case 1:
				_, err = svc.Decline(ctx, a.ID, actor)
			case 2:
				_, err = svc.Complete(ctx, a.ID, actor)
			default:
				_, err = svc.Dispute(ctx, a.ID, actor, "goods arrived damaged")
			}
			return err
		})
}

// Chatter sends direct messages between random users.
func Chatter(ctx context.Context, svc *messaging.Service, users []string, rng *rand.Rand, tally *Tally, stop <-chan struct{}) error {
	tally.Name = "chatter"
	return run(ctx, stop, tally, func() time.Duration { return time.Duration(20+rng.Intn(30)) * time.Millisecond },
		func(ctx context.Context) error {
			a, b := pair(rng, users)
			_, err := svc.Send(ctx, a, b, fmt.Sprintf("ping %d", rng.Int63()))
			return err
		})
}
