package directory

import (
	"context"
	"testing"
)

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddClient("c1")
	m.AddDriver("d1", "amb-1")
	m.AddDriver("d2", "")

	if ok, _ := m.ClientExists(ctx, "c1"); !ok {
		t.Fatalf("expected client c1")
	}
	if ok, _ := m.ClientExists(ctx, "d1"); ok {
		t.Fatalf("drivers are not clients")
	}
	if ok, _ := m.DriverExists(ctx, "d2"); !ok {
		t.Fatalf("expected driver d2")
	}
	if ok, _ := m.DriverExists(ctx, "ghost"); ok {
		t.Fatalf("unexpected driver ghost")
	}

	v, err := m.VehicleOf(ctx, "d1")
	if err != nil || v == nil || *v != "amb-1" {
		t.Fatalf("expected amb-1 for d1, got %v (%v)", v, err)
	}
	v, err = m.VehicleOf(ctx, "d2")
	if err != nil || v != nil {
		t.Fatalf("expected no vehicle for d2, got %v (%v)", v, err)
	}
}
