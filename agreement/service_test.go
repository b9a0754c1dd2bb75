package agreement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/db"
	"marketmapper/db/dbtest"
	"marketmapper/messaging"
)

type harness struct {
	svc   *Service
	pool  *dbtest.Pool
	repo  *fakeRepo
	inbox *fakeMessages
}

func newHarness(policy CompletionPolicy) *harness {
	h := &harness{
		pool:  &dbtest.Pool{},
		repo:  newFakeRepo(),
		inbox: &fakeMessages{},
	}
	users := fakeUsers{"sender": true, "receiver": true, "outsider": true}
	h.svc = NewService(h.pool, h.repo, h.inbox, users, policy, nil, nil)
	return h
}

func validTerms() ProposeParams {
	return ProposeParams{
		Title:       "Logo design",
		Description: "Brand refresh for the shop",
		Amount:      50000,
		Deadline:    time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (h *harness) propose(t *testing.T) Agreement {
	t.Helper()
	a, err := h.svc.Propose(context.Background(), "sender", "receiver", validTerms())
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return a
}

func TestService_FullLifecycleEmitsMessages(t *testing.T) {
	h := newHarness(CompleteByParty)
	ctx := context.Background()

	a := h.propose(t)
	if a.Status != StatusPending || a.PaymentTerms != DefaultPaymentTerms {
		t.Fatalf("unexpected proposal %+v", a)
	}

	if _, err := h.svc.Accept(ctx, a.ID, "receiver"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	done, err := h.svc.Complete(ctx, a.ID, "sender")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %s", done.Status)
	}

	want := []sentMessage{
		{"sender", "receiver", `PROPOSAL: New Agreement created for "Logo design". Value: ₹50000.`},
		{"receiver", "sender", `✅ AGREEMENT ACCEPTED: "Logo design" is now active.`},
		{"sender", "receiver", `🏁 AGREEMENT COMPLETED: "Logo design" has been marked complete.`},
	}
	if diff := cmp.Diff(want, h.inbox.sent, cmp.AllowUnexported(sentMessage{})); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	for i, tx := range h.pool.Txs {
		if h.inbox.txs[i] != tx {
			t.Fatalf("message %d was not written in its transition's transaction", i)
		}
	}

	events := h.repo.events[a.ID]
	var trail []string
	for i, ev := range events {
		if ev.Seq != i+1 {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		trail = append(trail, string(ev.Next))
	}
	if diff := cmp.Diff([]string{"Pending", "Active", "Completed"}, trail); diff != "" {
		t.Fatalf("event trail mismatch (-want +got):\n%s", diff)
	}
	if events[0].Previous != nil {
		t.Fatal("creation event must have no previous status")
	}
	if *events[2].Previous != StatusActive {
		t.Fatalf("completion event previous = %s", *events[2].Previous)
	}
}

func TestService_ProposeValidation(t *testing.T) {
	h := newHarness(CompleteByParty)
	ctx := context.Background()

	noTitle := validTerms()
	noTitle.Title = "  "
	zero := validTerms()
	zero.Amount = 0
	noDeadline := validTerms()
	noDeadline.Deadline = time.Time{}
	subCent := validTerms()
	subCent.Amount = 0.001
	tooLarge := validTerms()
	tooLarge.Amount = 1e12

	cases := []struct {
		name     string
		receiver string
		params   ProposeParams
		want     error
	}{
		{"missing title", "receiver", noTitle, ErrMissingTerms},
		{"zero amount", "receiver", zero, ErrInvalidAmount},
		{"missing deadline", "receiver", noDeadline, ErrMissingTerms},
		{"below one cent", "receiver", subCent, ErrInvalidAmount},
		{"overflows numeric(14,2)", "receiver", tooLarge, ErrInvalidAmount},
		{"self", "sender", validTerms(), ErrSelfAgreement},
		{"self in another case", "SENDER", validTerms(), ErrSelfAgreement},
		{"unknown receiver", "ghost", validTerms(), apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Propose(ctx, "sender", tc.receiver, tc.params)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(h.pool.Txs) != 0 || len(h.repo.rows) != 0 {
		t.Fatal("rejected proposals must not touch storage")
	}
}

func TestService_ProposeKeepsExplicitTerms(t *testing.T) {
	h := newHarness(CompleteByParty)
	params := validTerms()
	params.PaymentTerms = "50% upfront"
	params.Amount = 1250.5

	a, err := h.svc.Propose(context.Background(), "sender", "receiver", params)
	if err != nil {
		t.Fatal(err)
	}
	if a.PaymentTerms != "50% upfront" {
		t.Fatalf("payment terms = %q", a.PaymentTerms)
	}
	if got := h.inbox.sent[0].content; got != `PROPOSAL: New Agreement created for "Logo design". Value: ₹1250.5.` {
		t.Fatalf("unexpected proposal message %q", got)
	}
}

func TestService_UnauthorizedAttemptsChangeNothing(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		policy CompletionPolicy
		setup  []Status
		run    func(s *Service, id string) error
		want   error
	}{
		{"sender accepts", CompleteByParty, nil, func(s *Service, id string) error {
			_, err := s.Accept(ctx, id, "sender")
			return err
		}, ErrReceiverOnly},
		{"outsider declines", CompleteByParty, nil, func(s *Service, id string) error {
			_, err := s.Decline(ctx, id, "outsider")
			return err
		}, ErrReceiverOnly},
		{"outsider disputes", CompleteByParty, nil, func(s *Service, id string) error {
			_, err := s.Dispute(ctx, id, "outsider", "scam")
			return err
		}, ErrNotParty},
		{"outsider completes", CompleteByParty, []Status{StatusActive}, func(s *Service, id string) error {
			_, err := s.Complete(ctx, id, "outsider")
			return err
		}, ErrNotAllowedToComplete},
		{"receiver completes under sender policy", CompleteBySender, []Status{StatusActive}, func(s *Service, id string) error {
			_, err := s.Complete(ctx, id, "receiver")
			return err
		}, ErrNotAllowedToComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.policy)
			a := h.propose(t)
			for _, st := range tc.setup {
				h.repo.force(a.ID, st)
			}
			before := h.repo.rows[a.ID]
			events := len(h.repo.events[a.ID])
			messages := len(h.inbox.sent)
			commits := h.pool.Committed()

			err := tc.run(h.svc, a.ID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("expected unauthorized kind, got %v", err)
			}
			if diff := cmp.Diff(before, h.repo.rows[a.ID]); diff != "" {
				t.Fatalf("agreement changed (-before +after):\n%s", diff)
			}
			if len(h.repo.events[a.ID]) != events || len(h.inbox.sent) != messages || h.pool.Committed() != commits {
				t.Fatal("refused transition wrote events, messages or commits")
			}
			if tx := h.pool.Last(); !tx.RolledBack {
				t.Fatal("refused transition must roll back")
			}
		})
	}
}

func TestService_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(CompleteByParty)
	a := h.propose(t)

	if _, err := h.svc.Complete(ctx, a.ID, "sender"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completing a pending agreement: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := h.svc.Decline(ctx, a.ID, "receiver"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	for name, run := range map[string]func() error{
		"accept":   func() error { _, err := h.svc.Accept(ctx, a.ID, "receiver"); return err },
		"decline":  func() error { _, err := h.svc.Decline(ctx, a.ID, "receiver"); return err },
		"dispute":  func() error { _, err := h.svc.Dispute(ctx, a.ID, "sender", "late"); return err },
		"complete": func() error { _, err := h.svc.Complete(ctx, a.ID, "sender"); return err },
	} {
		if err := run(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s after decline: expected ErrInvalidTransition, got %v", name, err)
		}
	}
	if got := h.repo.rows[a.ID].Status; got != StatusDeclined {
		t.Fatalf("declined agreement moved to %s", got)
	}
	// Declining sends no chat message.
	if len(h.inbox.sent) != 1 {
		t.Fatalf("expected only the proposal message, got %d", len(h.inbox.sent))
	}
}

func TestService_DisputeRecordsReason(t *testing.T) {
	ctx := context.Background()
	h := newHarness(CompleteByParty)
	a := h.propose(t)
	if _, err := h.svc.Accept(ctx, a.ID, "receiver"); err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.Dispute(ctx, a.ID, "receiver", "   "); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	disputed, err := h.svc.Dispute(ctx, a.ID, "receiver", " Work not delivered ")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if disputed.Status != StatusDisputed || disputed.DisputeReason != "Work not delivered" || disputed.DisputedAt == nil {
		t.Fatalf("unexpected disputed agreement %+v", disputed)
	}
	last := h.inbox.sent[len(h.inbox.sent)-1]
	want := sentMessage{"receiver", "sender", `⚠️ DISPUTE RAISED: "Logo design". Reason: Work not delivered`}
	if last != want {
		t.Fatalf("dispute message = %+v, want %+v", last, want)
	}

	events := h.repo.events[a.ID]
	var payload map[string]string
	if err := json.Unmarshal(events[len(events)-1].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["reason"] != "Work not delivered" {
		t.Fatalf("event payload = %v", payload)
	}

	if _, err := h.svc.Complete(ctx, a.ID, "sender"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("disputed agreements are frozen, got %v", err)
	}
}

func TestService_CompleteByAnyoneSkipsOutsiderMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(CompleteByAnyone)
	a := h.propose(t)
	if _, err := h.svc.Accept(ctx, a.ID, "receiver"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Complete(ctx, a.ID, "outsider"); err != nil {
		t.Fatalf("complete by outsider: %v", err)
	}
	if len(h.inbox.sent) != 2 {
		t.Fatalf("an outsider completion must not post into the parties' chat, got %d messages", len(h.inbox.sent))
	}
}

func TestService_MessageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(CompleteByParty)
	a := h.propose(t)
	h.inbox.err = errors.New("messages table locked")

	if _, err := h.svc.Accept(ctx, a.ID, "receiver"); err == nil {
		t.Fatal("expected error")
	}
	if tx := h.pool.Last(); tx.Committed || !tx.RolledBack {
		t.Fatal("accept must roll back when the chat message fails")
	}
}

func TestService_NotFound(t *testing.T) {
	h := newHarness(CompleteByParty)
	if _, err := h.svc.Accept(context.Background(), "missing", "receiver"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.svc.Get(context.Background(), "missing", "receiver"); !errors.Is(err, ErrAgreementNotFound) {
		t.Fatalf("expected ErrAgreementNotFound, got %v", err)
	}
}

func TestService_GetAndHistoryArePartyOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(CompleteByParty)
	a := h.propose(t)

	if _, err := h.svc.Get(ctx, a.ID, "receiver"); err != nil {
		t.Fatalf("get as receiver: %v", err)
	}
	if _, err := h.svc.Get(ctx, a.ID, "outsider"); !errors.Is(err, ErrNotParty) {
		t.Fatalf("expected ErrNotParty, got %v", err)
	}
	events, err := h.svc.History(ctx, a.ID, "sender")
	if err != nil || len(events) != 1 {
		t.Fatalf("history = %v, %v", events, err)
	}
	if _, err := h.svc.History(ctx, a.ID, "outsider"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized history, got %v", err)
	}
}

func TestGroupHub(t *testing.T) {
	list := []Agreement{
		{ID: "1", SenderID: "me", ReceiverID: "x", Status: StatusPending},
		{ID: "2", SenderID: "x", ReceiverID: "me", Status: StatusPending},
		{ID: "3", SenderID: "me", ReceiverID: "x", Status: StatusActive},
		{ID: "4", SenderID: "x", ReceiverID: "me", Status: StatusCompleted},
		{ID: "5", SenderID: "x", ReceiverID: "me", Status: StatusDisputed},
		{ID: "6", SenderID: "me", ReceiverID: "x", Status: StatusDeclined},
	}
	hub := groupHub("me", list)

	got := map[string][]Agreement{
		"received": hub.ReceivedPending,
		"sent":     hub.SentPending,
		"active":   hub.Active,
		"done":     hub.Completed,
		"disputed": hub.Disputed,
		"declined": hub.Declined,
	}
	want := map[string]string{"received": "2", "sent": "1", "active": "3", "done": "4", "disputed": "5", "declined": "6"}
	for group, id := range want {
		if len(got[group]) != 1 || got[group][0].ID != id {
			t.Errorf("group %s = %+v, want id %s", group, got[group], id)
		}
	}

	empty := groupHub("me", nil)
	if empty.Active == nil || empty.ReceivedPending == nil {
		t.Fatal("hub groups must be empty slices, not nil")
	}
}

func TestParseDeadline(t *testing.T) {
	d, err := ParseDeadline("2026-11-30")
	if err != nil || d.Year() != 2026 || d.Month() != time.November || d.Day() != 30 {
		t.Fatalf("ParseDeadline = %v, %v", d, err)
	}
	if _, err := ParseDeadline("30/11/2026"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type sentMessage struct {
	from, to, content string
}

type fakeMessages struct {
	sent []sentMessage
	txs  []db.DBTX
	err  error
}

func (f *fakeMessages) Append(ctx context.Context, q db.DBTX, senderID, receiverID, content string) (messaging.Message, error) {
	if f.err != nil {
		return messaging.Message{}, f.err
	}
	f.sent = append(f.sent, sentMessage{senderID, receiverID, content})
	f.txs = append(f.txs, q)
	return messaging.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}, nil
}

type fakeUsers map[string]bool

func (f fakeUsers) GetUserByID(ctx context.Context, userID string) (auth.User, error) {
	if !f[userID] {
		return auth.User{}, auth.ErrUserNotFound
	}
	return auth.User{ID: userID}, nil
}

// fakeRepo keeps rows in memory. Writes land immediately, so tests assert
// on rollback through the dbtest transaction and on the absence of writes.
type fakeRepo struct {
	rows   map[string]Agreement
	events map[string][]Event
	nextID int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]Agreement), events: make(map[string][]Event)}
}

func (f *fakeRepo) force(id string, st Status) {
	a := f.rows[id]
	a.Status = st
	f.rows[id] = a
}

func (f *fakeRepo) Create(ctx context.Context, q db.DBTX, params CreateParams) (Agreement, error) {
	f.nextID++
	now := time.Now()
	a := Agreement{
		ID:           fmt.Sprintf("agreement-%d", f.nextID),
		Title:        params.Title,
		Description:  params.Description,
		Amount:       params.Amount,
		Deadline:     params.Deadline,
		PaymentTerms: params.PaymentTerms,
		SenderID:     params.SenderID,
		ReceiverID:   params.ReceiverID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.rows[a.ID] = a
	return a, nil
}

func (f *fakeRepo) LockByID(ctx context.Context, q db.DBTX, agreementID string) (Agreement, error) {
	return f.GetByID(ctx, agreementID)
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, q db.DBTX, params UpdateStatusParams) (Agreement, error) {
	a, ok := f.rows[params.AgreementID]
	if !ok {
		return Agreement{}, ErrAgreementNotFound
	}
	a.Status = params.Next
	if params.Next == StatusDisputed {
		now := time.Now()
		a.DisputeReason = params.DisputeReason
		a.DisputedAt = &now
	}
	f.rows[a.ID] = a
	return a, nil
}

func (f *fakeRepo) AppendEvent(ctx context.Context, q db.DBTX, ev Event) (Event, error) {
	ev.Seq = len(f.events[ev.AgreementID]) + 1
	ev.ID = int64(ev.Seq)
	ev.CreatedAt = time.Now()
	f.events[ev.AgreementID] = append(f.events[ev.AgreementID], ev)
	return ev, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, agreementID string) (Agreement, error) {
	a, ok := f.rows[agreementID]
	if !ok {
		return Agreement{}, ErrAgreementNotFound
	}
	return a, nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID string) ([]Agreement, error) {
	out := []Agreement{}
	for _, a := range f.rows {
		if a.IsParty(userID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountForUser(ctx context.Context, userID string) (int, error) {
	list, _ := f.ListForUser(ctx, userID)
	return len(list), nil
}

func (f *fakeRepo) Events(ctx context.Context, agreementID string) ([]Event, error) {
	return f.events[agreementID], nil
}
