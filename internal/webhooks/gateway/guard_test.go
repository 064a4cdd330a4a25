package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	keys    map[string]bool
	failSet bool
	deleted []string
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.failSet {
		return false, errors.New("connection refused")
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func TestGuardFirstDeliveryPasses(t *testing.T) {
	store := &fakeStore{}
	guard := NewIdempotencyGuard(store, time.Hour, nil)
	ctx := context.Background()

	if !guard.CheckAndMark(ctx, "SOKO-1", "paid") {
		t.Fatal("first delivery blocked")
	}
	if guard.CheckAndMark(ctx, "SOKO-1", "paid") {
		t.Fatal("redelivery passed")
	}
	// Same reference, different status is a distinct delivery.
	if !guard.CheckAndMark(ctx, "SOKO-1", "failed") {
		t.Fatal("distinct status blocked")
	}
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	store := &fakeStore{}
	guard := NewIdempotencyGuard(store, time.Hour, nil)
	ctx := context.Background()

	guard.CheckAndMark(ctx, "SOKO-2", "paid")
	guard.Release(ctx, "SOKO-2", "paid")
	if !guard.CheckAndMark(ctx, "SOKO-2", "paid") {
		t.Fatal("retry blocked after release")
	}
}

func TestGuardFailsOpen(t *testing.T) {
	guard := NewIdempotencyGuard(&fakeStore{failSet: true}, time.Hour, nil)
	if !guard.CheckAndMark(context.Background(), "SOKO-3", "paid") {
		t.Fatal("store error blocked delivery")
	}
}

func TestGuardNilStorePasses(t *testing.T) {
	guard := NewIdempotencyGuard(nil, time.Hour, nil)
	if !guard.CheckAndMark(context.Background(), "SOKO-4", "paid") {
		t.Fatal("nil store blocked delivery")
	}
	guard.Release(context.Background(), "SOKO-4", "paid")
}
