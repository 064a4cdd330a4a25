package payments

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewReferenceShape(t *testing.T) {
	userID := uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001")
	planID := uuid.MustParse("deadbeef-0000-4000-8000-000000000002")
	now := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	ref := NewReference(userID, planID, now)

	parts := strings.Split(ref, "-")
	if len(parts) != 4 {
		t.Fatalf("reference %q has %d segments, want 4", ref, len(parts))
	}
	if parts[0] != "SOKO" {
		t.Fatalf("prefix = %q", parts[0])
	}
	if parts[1] != "A1B2C3D4" {
		t.Fatalf("user segment = %q", parts[1])
	}
	if parts[2] != "DEADBEEF" {
		t.Fatalf("plan segment = %q", parts[2])
	}
	if ref != strings.ToUpper(ref) {
		t.Fatalf("reference not upper-cased: %q", ref)
	}
}

func TestNewReferenceDistinctAcrossTime(t *testing.T) {
	userID, planID := uuid.New(), uuid.New()
	base := time.Now()

	a := NewReference(userID, planID, base)
	b := NewReference(userID, planID, base.Add(time.Nanosecond))
	if a == b {
		t.Fatalf("references collide for distinct timestamps: %q", a)
	}
}
