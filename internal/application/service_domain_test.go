package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/contracts"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

func seedDomainUsers(env testEnv, emailDomain string, firstID int64, n int, registeredAt time.Time, roles ...domain.Role) {
	for i := 0; i < n; i++ {
		id := firstID + int64(i)
		env.store.addUser(domain.User{
			ID:           id,
			Email:        "user" + strconv.FormatInt(id, 10) + "@" + emailDomain,
			RegisteredAt: registeredAt,
			Roles:        roles,
		})
	}
}

func TestCheckAndBlockDomainIgnoresMissingAndPopularDomains(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	ctx := context.Background()
	for _, email := range []string{"", "no-at-sign", "someone@gmail.com"} {
		flagged, err := env.svc.CheckAndBlockDomain(ctx, domain.User{ID: 2, Email: email})
		if err != nil || flagged {
			t.Fatalf("email %q: flagged=%v err=%v", email, flagged, err)
		}
	}
}

func TestCheckAndBlockDomainFlagsFreshAbusiveDomain(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	seedDomainUsers(env, "spam.test", 200, 3, testNow.Add(-24*time.Hour), domain.RoleSpam)
	u := domain.User{ID: 210, Email: "new@Spam.Test", RegisteredAt: testNow}
	env.store.addUser(u)
	ctx := context.Background()

	flagged, err := env.svc.CheckAndBlockDomain(ctx, u)
	if err != nil || !flagged {
		t.Fatalf("flagged=%v err=%v", flagged, err)
	}
	events := env.store.outboxOf(domain.EventDomainBlockRequested)
	if len(events) != 1 || events[0].PartitionKey != "spam.test" {
		t.Fatalf("expected one domain block job for spam.test, got %+v", events)
	}
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(events[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var payload contracts.DomainBlockRequestedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.Domain != "spam.test" || payload.TriggerUserID != 210 {
		t.Fatalf("unexpected payload %+v err=%v", payload, err)
	}

	flagged, err = env.svc.CheckAndBlockDomain(ctx, u)
	if err != nil || !flagged {
		t.Fatalf("repeat check: flagged=%v err=%v", flagged, err)
	}
	if n := len(env.store.outboxOf(domain.EventDomainBlockRequested)); n != 1 {
		t.Fatalf("guard should hold the enqueue to one, got %d", n)
	}
}

func TestCheckAndBlockDomainSkipsEstablishedDomains(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	seedDomainUsers(env, "corp.test", 300, 3, testNow.Add(-time.Hour), domain.RoleSuspended)
	env.store.addUser(domain.User{ID: 320, Email: "veteran@corp.test", RegisteredAt: testNow.Add(-domainNewWindow - time.Second)})

	flagged, err := env.svc.CheckAndBlockDomain(context.Background(), domain.User{ID: 300, Email: "user@corp.test"})
	if err != nil || flagged {
		t.Fatalf("flagged=%v err=%v", flagged, err)
	}
}

func TestCheckAndBlockDomainWindowBoundary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	cutoff := testNow.Add(-domainNewWindow)
	// registered exactly at the cutoff: recent for condition B, not old for A
	seedDomainUsers(env, "edge.test", 400, 3, cutoff, domain.RoleSpam)

	flagged, err := env.svc.CheckAndBlockDomain(context.Background(), domain.User{ID: 400, Email: "x@edge.test"})
	if err != nil || !flagged {
		t.Fatalf("users at the cutoff must count as recent: flagged=%v err=%v", flagged, err)
	}
}

func TestCheckAndBlockDomainNeedsThreeFlaggedUsers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	seedDomainUsers(env, "almost.test", 500, 2, testNow.Add(-time.Hour), domain.RoleSpam)
	seedDomainUsers(env, "almost.test", 510, 4, testNow.Add(-time.Hour))

	flagged, err := env.svc.CheckAndBlockDomain(context.Background(), domain.User{ID: 510, Email: "x@almost.test"})
	if err != nil || flagged {
		t.Fatalf("flagged=%v err=%v", flagged, err)
	}
	if n := len(env.store.outbox); n != 0 {
		t.Fatalf("expected no side effects, got %d outbox events", n)
	}
}

func TestCheckAndBlockDomainEnqueuesWhenGuardUnavailable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	env.cache.err = errors.New("redis down")
	seedDomainUsers(env, "guardless.test", 600, 3, testNow.Add(-time.Hour), domain.RoleSpam)

	flagged, err := env.svc.CheckAndBlockDomain(context.Background(), domain.User{ID: 600, Email: "x@guardless.test"})
	if err != nil || !flagged {
		t.Fatalf("flagged=%v err=%v", flagged, err)
	}
	if n := len(env.store.outboxOf(domain.EventDomainBlockRequested)); n != 1 {
		t.Fatalf("expected enqueue despite guard failure, got %d", n)
	}
}

func TestCheckAndBlockDomainReleasesGuardWhenEnqueueFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	seedDomainUsers(env, "retry.test", 700, 3, testNow.Add(-time.Hour), domain.RoleSpam)
	u := domain.User{ID: 700, Email: "x@retry.test"}
	ctx := context.Background()

	outboxDown := errors.New("outbox insert failed")
	env.store.enqueueErr = outboxDown
	flagged, err := env.svc.CheckAndBlockDomain(ctx, u)
	if !errors.Is(err, outboxDown) || flagged {
		t.Fatalf("expected enqueue failure to surface, flagged=%v err=%v", flagged, err)
	}

	flagged, err = env.svc.CheckAndBlockDomain(ctx, u)
	if err != nil || !flagged {
		t.Fatalf("retry: flagged=%v err=%v", flagged, err)
	}
	if n := len(env.store.outboxOf(domain.EventDomainBlockRequested)); n != 1 {
		t.Fatalf("retry should enqueue once the guard is released, got %d", n)
	}
}

func TestCheckAndBlockDomainFailsWithoutOutbox(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	env.svc.outbox = nil
	seedDomainUsers(env, "nowhere.test", 800, 3, testNow.Add(-time.Hour), domain.RoleSpam)

	flagged, err := env.svc.CheckAndBlockDomain(context.Background(), domain.User{ID: 800, Email: "x@nowhere.test"})
	if !errors.Is(err, domain.ErrDependencyUnavailable) || flagged {
		t.Fatalf("a job that cannot be sent must not report a block: flagged=%v err=%v", flagged, err)
	}
	if env.cache.keys[domainBlockGuardPrefix+"nowhere.test"] {
		t.Fatal("guard must be released when the job is not sent")
	}
}

func TestBlockAndSuspendDomain(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	seedDomainUsers(env, "block.test", 700, 2, testNow.Add(-time.Hour), domain.RoleSpam)
	seedDomainUsers(env, "block.test", 710, 1, testNow.Add(-time.Hour), domain.RoleSuspended)
	ctx := context.Background()

	n, err := env.svc.BlockAndSuspendDomain(ctx, "block.test")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 newly suspended users, got %d", n)
	}
	if _, ok := env.store.blocked["block.test"]; !ok {
		t.Fatalf("domain not recorded as blocked")
	}
	for _, id := range []int64{700, 701} {
		notes := env.store.notesFor(id)
		if !env.store.user(id).IsSuspended() || len(notes) != 1 || notes[0].Reason != domain.NoteReasonDomainBlock {
			t.Fatalf("user %d not suspended through domain block: %+v", id, notes)
		}
	}
	if notes := env.store.notesFor(710); len(notes) != 0 {
		t.Fatalf("already suspended user must be skipped, got %+v", notes)
	}

	n, err = env.svc.BlockAndSuspendDomain(ctx, "block.test")
	if err != nil || n != 0 {
		t.Fatalf("second run: n=%d err=%v", n, err)
	}
}

func TestBlockAndSuspendDomainRefusesSharedProviders(t *testing.T) {
	t.Parallel()

	env := newTestEnv(Config{})
	for _, d := range []string{"", "gmail.com"} {
		if _, err := env.svc.BlockAndSuspendDomain(context.Background(), d); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("domain %q: expected invalid input, got %v", d, err)
		}
	}
}
