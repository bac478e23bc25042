package session

import (
	"context"
	"testing"
	"time"

	"github.com/veldtma/authcoord/kv"
)

const testKey = "authcoord:session"

func newTestStore(t *testing.T, storage kv.Store, now time.Time) *Store {
	t.Helper()
	return NewStore(storage, testKey, 7*24*time.Hour, func() time.Time { return now })
}

func TestHydrateEmptyStorage(t *testing.T) {
	store := newTestStore(t, kv.NewMemory(), time.Now())

	sess, corrupt, err := store.Hydrate(context.Background())
	if err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if corrupt {
		t.Fatal("empty storage reported corrupt")
	}
	if sess != nil {
		t.Fatalf("session = %+v, want nil", sess)
	}
}

func TestReplaceThenHydrateRestores(t *testing.T) {
	storage := kv.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first := newTestStore(t, storage, now)
	original := sampleSession()
	original.IssuedAt = now
	original.ExpiresAt = now.Add(time.Hour)
	if _, err := first.Replace(ctx, original); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// A fresh store over the same durable storage models a restart.
	second := newTestStore(t, storage, now.Add(time.Minute))
	restored, corrupt, err := second.Hydrate(ctx)
	if err != nil || corrupt {
		t.Fatalf("Hydrate: corrupt=%v err=%v", corrupt, err)
	}
	if restored == nil || restored.UserID != original.UserID {
		t.Fatalf("restored = %+v", restored)
	}
}

func TestHydrateCorruptRecordFailsOpen(t *testing.T) {
	storage := kv.NewMemory()
	ctx := context.Background()
	if err := storage.Set(ctx, testKey, []byte("{broken")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	store := newTestStore(t, storage, time.Now())
	sess, corrupt, err := store.Hydrate(ctx)
	if err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if !corrupt {
		t.Fatal("corrupt record not reported")
	}
	if sess != nil {
		t.Fatal("corrupt record produced a session")
	}

	// The bad record must be gone so the next start is clean.
	if _, ok, _ := storage.Get(ctx, testKey); ok {
		t.Fatal("corrupt record left in storage")
	}
}

func TestHydrateExpiredRecordDiscards(t *testing.T) {
	storage := kv.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	expired := sampleSession()
	expired.IssuedAt = now.Add(-2 * time.Hour)
	expired.ExpiresAt = now.Add(-time.Hour)
	data, err := Encode(expired)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := storage.Set(ctx, testKey, data); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	store := newTestStore(t, storage, now)
	sess, corrupt, err := store.Hydrate(ctx)
	if err != nil || corrupt {
		t.Fatalf("Hydrate: corrupt=%v err=%v", corrupt, err)
	}
	if sess != nil {
		t.Fatal("expired record produced a session")
	}
	if _, ok, _ := storage.Get(ctx, testKey); ok {
		t.Fatal("expired record left in storage")
	}
}

func TestReplaceClampsLifetime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(kv.NewMemory(), testKey, 24*time.Hour, func() time.Time { return now })

	sess := sampleSession()
	sess.IssuedAt = now
	sess.ExpiresAt = now.Add(30 * 24 * time.Hour)
	if _, err := store.Replace(context.Background(), sess); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	installed, _ := store.Snapshot()
	want := now.Add(24 * time.Hour)
	if !installed.ExpiresAt.Equal(want) {
		t.Fatalf("clamped expiry = %v, want %v", installed.ExpiresAt, want)
	}
}

func TestVersionAdvancesOnEveryTransition(t *testing.T) {
	store := newTestStore(t, kv.NewMemory(), time.Now())
	ctx := context.Background()

	v0 := store.Version()
	if _, err := store.Replace(ctx, sampleSession()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	v1 := store.Version()
	store.ApplyRemote(sampleSession())
	v2 := store.Version()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	v3 := store.Version()

	if !(v0 < v1 && v1 < v2 && v2 < v3) {
		t.Fatalf("versions did not advance: %d %d %d %d", v0, v1, v2, v3)
	}
}

func TestApplyRemoteSkipsDurableWrite(t *testing.T) {
	storage := kv.NewMemory()
	store := newTestStore(t, storage, time.Now())

	store.ApplyRemote(sampleSession())

	// The originating tab persisted the record; a receiving tab must not
	// write a second copy.
	if _, ok, _ := storage.Get(context.Background(), testKey); ok {
		t.Fatal("remote apply wrote to durable storage")
	}
	if sess, _ := store.Snapshot(); sess == nil {
		t.Fatal("remote apply did not install session in memory")
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	store := newTestStore(t, kv.NewMemory(), time.Now())
	if _, err := store.Replace(context.Background(), sampleSession()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	first, _ := store.Snapshot()
	first.Email = "mutated@example.com"

	second, _ := store.Snapshot()
	if second.Email != "ada@example.com" {
		t.Fatal("snapshot aliases internal state")
	}
}

func TestMarkValidated(t *testing.T) {
	store := newTestStore(t, kv.NewMemory(), time.Now())
	if _, err := store.Replace(context.Background(), sampleSession()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	stamp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	store.MarkValidated(stamp)

	sess, _ := store.Snapshot()
	if !sess.LastValidatedAt.Equal(stamp) {
		t.Fatalf("LastValidatedAt = %v, want %v", sess.LastValidatedAt, stamp)
	}
}
