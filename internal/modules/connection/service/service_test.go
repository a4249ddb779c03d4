package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/modules/connection/dto"
	notification "anoa.com/peerlink/internal/modules/notification/service"
	"anoa.com/peerlink/internal/testutil"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/cache"
	"github.com/google/uuid"
)

type fixture struct {
	store    *testutil.Store
	notifier *testutil.Notifier
	limiter  *testutil.Limiter
	svc      ConnectionService
}

func newFixture() *fixture {
	store := testutil.NewStore()
	f := &fixture{store: store, notifier: &testutil.Notifier{}, limiter: &testutil.Limiter{}}
	f.svc = NewConnectionService(
		store.Connections(),
		store.Students(),
		store.Users(),
		store,
		f.notifier,
		f.limiter,
		Options{PendingTTL: 30 * 24 * time.Hour, RequestInterval: time.Second},
	)
	return f
}

func TestSendRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	req, err := f.svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if req.Status != entity.ConnectionPending || req.SenderID != alice.ID || req.ReceiverID != bob.ID {
		t.Fatalf("unexpected request %+v", req)
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0].UserID != bob.ID || events[0].Event.Type != notification.EventConnectionRequested {
		t.Fatalf("expected one request event for bob, got %+v", events)
	}
}

func TestSendRequestRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")
	sponsor, _ := f.store.NewSponsor(t, "acme")

	if _, err := f.svc.SendRequest(ctx, alice.ID, alice.ID); !errors.Is(err, apperror.ErrInvalidOperation) {
		t.Fatalf("self request: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, alice.ID, sponsor.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("request to sponsor: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, alice.ID, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("request to unknown user: got %v", err)
	}

	if _, err := f.svc.SendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate send: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, bob.ID, alice.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("reverse send while pending: got %v", err)
	}
}

func TestSendRequestRateLimited(t *testing.T) {
	f := newFixture()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	f.limiter.Deny = true
	if _, err := f.svc.SendRequest(context.Background(), alice.ID, bob.ID); !errors.Is(err, apperror.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if n := len(f.store.Connections().All()); n != 0 {
		t.Fatalf("limited request was stored: %d", n)
	}
}

func TestAcceptConnectsBothSides(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	req, err := f.svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := f.svc.RespondToRequest(ctx, alice.ID, req.ID, dto.ActionAccept); !errors.Is(err, apperror.ErrInvalidOperation) {
		t.Fatalf("sender accepting own request: got %v", err)
	}

	res, err := f.svc.RespondToRequest(ctx, bob.ID, req.ID, dto.ActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Status != entity.ConnectionAccepted {
		t.Fatalf("status = %s", res.Status)
	}

	a := f.store.Student(t, alice.ID)
	b := f.store.Student(t, bob.ID)
	if !a.IsConnectedTo(bob.ID) || !b.IsConnectedTo(alice.ID) {
		t.Fatalf("connection not symmetric: alice=%v bob=%v", a.Connections, b.Connections)
	}
	if a.ConnectionCount != 1 || b.ConnectionCount != 1 {
		t.Fatalf("counts = %d, %d", a.ConnectionCount, b.ConnectionCount)
	}

	if _, err := f.svc.RespondToRequest(ctx, bob.ID, req.ID, dto.ActionAccept); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second accept: got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, bob.ID, alice.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("request between connected students: got %v", err)
	}
}

func TestRejectLeavesProfilesUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	if _, err := f.svc.SendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	res, err := f.svc.RespondBySender(ctx, bob.ID, alice.ID, dto.ActionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Status != entity.ConnectionRejected {
		t.Fatalf("status = %s", res.Status)
	}
	if f.store.Student(t, alice.ID).ConnectionCount != 0 || f.store.Student(t, bob.ID).ConnectionCount != 0 {
		t.Fatal("reject must not connect")
	}

	// A rejected pair may try again.
	if _, err := f.svc.SendRequest(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("resend after reject: %v", err)
	}
}

func TestAcceptRollsBackOnFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	req, err := f.svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	boom := errors.New("disk full")
	f.store.FailSave = boom
	if _, err := f.svc.RespondToRequest(ctx, bob.ID, req.ID, dto.ActionAccept); !errors.Is(err, boom) {
		t.Fatalf("expected save failure, got %v", err)
	}

	if f.store.Student(t, alice.ID).IsConnectedTo(bob.ID) || f.store.Student(t, bob.ID).IsConnectedTo(alice.ID) {
		t.Fatal("partial connection survived rollback")
	}
	pending, err := f.svc.ListPending(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending.Received) != 1 || pending.Received[0].Status != entity.ConnectionPending {
		t.Fatalf("request should still be pending: %+v", pending.Received)
	}
	if len(f.notifier.Events()) != 1 {
		t.Fatalf("no accept event may fire on failure: %+v", f.notifier.Events())
	}
}

func TestConcurrentAcceptsKeepCountsInStep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	hub, _ := f.store.NewStudent(t, "hub")

	const n = 8
	var requests []uuid.UUID
	for i := 0; i < n; i++ {
		u, _ := f.store.NewStudent(t, "peer"+string(rune('a'+i)))
		req, err := f.svc.SendRequest(ctx, u.ID, hub.ID)
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		requests = append(requests, req.ID)
	}

	var wg sync.WaitGroup
	for _, id := range requests {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := f.svc.RespondToRequest(ctx, hub.ID, id, dto.ActionAccept); err != nil {
				t.Errorf("accept %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	p := f.store.Student(t, hub.ID)
	if p.ConnectionCount != n || len(p.Connections) != n {
		t.Fatalf("count=%d set=%d, want %d", p.ConnectionCount, len(p.Connections), n)
	}
}

func TestListPendingNamesCounterparts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")
	carol, _ := f.store.NewStudent(t, "carol")

	if _, err := f.svc.SendRequest(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, alice.ID, carol.ID); err != nil {
		t.Fatalf("send: %v", err)
	}

	res, err := f.svc.ListPending(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Received) != 1 || res.Received[0].Counterpart.Name != "bob" {
		t.Fatalf("received = %+v", res.Received)
	}
	if len(res.Sent) != 1 || res.Sent[0].Counterpart.Name != "carol" {
		t.Fatalf("sent = %+v", res.Sent)
	}
}

func TestRemoveConnectionIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	req, _ := f.svc.SendRequest(ctx, alice.ID, bob.ID)
	if _, err := f.svc.RespondToRequest(ctx, bob.ID, req.ID, dto.ActionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}

	list, err := f.svc.ListConnections(ctx, alice.ID)
	if err != nil || len(list) != 1 || list[0].UserID != bob.ID {
		t.Fatalf("connections = %+v, err = %v", list, err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.RemoveConnection(ctx, alice.ID, bob.ID); err != nil {
			t.Fatalf("remove #%d: %v", i+1, err)
		}
	}
	a := f.store.Student(t, alice.ID)
	b := f.store.Student(t, bob.ID)
	if a.ConnectionCount != 0 || b.ConnectionCount != 0 || a.IsConnectedTo(bob.ID) || b.IsConnectedTo(alice.ID) {
		t.Fatalf("connection not removed: %+v %+v", a.Connections, b.Connections)
	}
	if n := len(f.store.Connections().All()); n != 0 {
		t.Fatalf("requests between the pair should be gone, %d left", n)
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conns := f.store.Connections()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	seed := []entity.ConnectionRequest{
		{SenderID: a, ReceiverID: b, Status: entity.ConnectionAccepted, CreatedAt: now},
		{SenderID: a, ReceiverID: c, Status: entity.ConnectionRejected, CreatedAt: now},
		{SenderID: b, ReceiverID: c, Status: entity.ConnectionPending, CreatedAt: now.Add(-31 * 24 * time.Hour)},
		{SenderID: c, ReceiverID: a, Status: entity.ConnectionPending, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range seed {
		if err := conns.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	res, err := f.svc.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Terminal != 2 || res.Expired != 1 {
		t.Fatalf("result = %+v", res)
	}
	left := conns.All()
	if len(left) != 1 || left[0].SenderID != c {
		t.Fatalf("remaining = %+v", left)
	}
}

func TestSweepAfterAcceptKeepsConnection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, _ := f.store.NewStudent(t, "alice")
	bob, _ := f.store.NewStudent(t, "bob")

	req, err := f.svc.SendRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.RespondToRequest(ctx, bob.ID, req.ID, dto.ActionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := f.svc.SweepExpired(ctx, time.Now()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if left := f.store.Connections().All(); len(left) != 0 {
		t.Fatalf("requests survived the sweep: %+v", left)
	}

	a := f.store.Student(t, alice.ID)
	b := f.store.Student(t, bob.ID)
	if !a.IsConnectedTo(bob.ID) || !b.IsConnectedTo(alice.ID) {
		t.Fatalf("sweep dropped the connection: alice=%v bob=%v", a.Connections, b.Connections)
	}
	if a.ConnectionCount != 1 || b.ConnectionCount != 1 {
		t.Fatalf("counts = %d, %d", a.ConnectionCount, b.ConnectionCount)
	}

	conns, err := f.svc.ListConnections(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("connections = %+v", conns)
	}
	if _, err := f.svc.SendRequest(ctx, bob.ID, alice.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("request after sweep: got %v", err)
	}
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return nil, false, nil
}

func TestSweepJobSkipsWhenLockHeld(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conns := f.store.Connections()
	if err := conns.Create(ctx, &entity.ConnectionRequest{
		SenderID: uuid.New(), ReceiverID: uuid.New(), Status: entity.ConnectionAccepted,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	held := NewSweepJob(f.svc, heldLocker{}, "0 0 * * *")
	if err := held.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conns.All()) != 1 {
		t.Fatal("sweep ran without the lock")
	}

	job := NewSweepJob(f.svc, cache.NewLocker(nil), "0 0 * * *")
	if job.Name() != "connection-sweep" || job.Schedule() != "0 0 * * *" {
		t.Fatalf("job = %s %s", job.Name(), job.Schedule())
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(conns.All()) != 0 {
		t.Fatal("processed request was not swept")
	}
}
