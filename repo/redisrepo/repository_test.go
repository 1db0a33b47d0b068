package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcore "github.com/raymandgroup/authcore"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "")
}

func sampleAccount(id, identity string) *authcore.Account {
	return &authcore.Account{
		ID:             id,
		Identity:       identity,
		DisplayName:    "Sample",
		CredentialHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		CreatedAt:      time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestCreateAndFindRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	account := sampleAccount("id-1", "user@example.com")
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("create: %v", err)
	}
	if account.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", account.Version)
	}

	byIdentity, err := repo.FindByIdentity(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("find by identity: %v", err)
	}
	if byIdentity.ID != "id-1" || byIdentity.DisplayName != "Sample" {
		t.Fatalf("unexpected account: %+v", byIdentity)
	}

	byID, err := repo.FindByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Identity != "user@example.com" {
		t.Fatalf("unexpected identity %q", byID.Identity)
	}
}

func TestCreateDuplicateIdentity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleAccount("id-1", "user@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Create(ctx, sampleAccount("id-2", "user@example.com"))
	if !errors.Is(err, authcore.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestFindUnknown(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.FindByIdentity(ctx, "missing@example.com"); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	account := sampleAccount("id-1", "user@example.com")
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("create: %v", err)
	}

	account.Verified = true
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("update: %v", err)
	}
	if account.Version != 2 {
		t.Fatalf("expected version 2 after update, got %d", account.Version)
	}

	stored, err := repo.FindByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Verified || stored.Version != 2 {
		t.Fatalf("unexpected stored account: %+v", stored)
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	account := sampleAccount("id-1", "user@example.com")
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := account.Clone()

	account.Verified = true
	if err := repo.Update(ctx, account); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale.DisplayName = "Stale"
	err := repo.Update(ctx, stale)
	if !errors.Is(err, authcore.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	stored, err := repo.FindByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.DisplayName != "Sample" {
		t.Fatalf("stale write must not land, got %q", stored.DisplayName)
	}
}

func TestUpdateUnknownAccount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.Update(ctx, sampleAccount("ghost", "ghost@example.com"))
	if !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
