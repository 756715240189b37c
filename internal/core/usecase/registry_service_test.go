package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

func TestDeviceIDGeneratedOnceAndPersisted(t *testing.T) {
	settings := newMemSettings()
	registry := NewRegistryService(settings)

	id, err := registry.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if matched, _ := regexp.MatchString(`^MOB-[0-9A-Z]{6}$`, id); !matched {
		t.Fatalf("expected MOB-XXXXXX device id, got %q", id)
	}

	again, err := registry.DeviceID(context.Background())
	if err != nil || again != id {
		t.Fatalf("expected stable device id, got %q err=%v", again, err)
	}

	// A new registry over the same settings store sees the same id.
	other := NewRegistryService(settings)
	persisted, err := other.DeviceID(context.Background())
	if err != nil || persisted != id {
		t.Fatalf("expected persisted device id, got %q err=%v", persisted, err)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	registry := NewRegistryService(newMemSettings())

	if _, ok, err := registry.Identity(context.Background()); err != nil || ok {
		t.Fatalf("expected no identity initially, ok=%v err=%v", ok, err)
	}

	want := domain.Identity{Name: "Alain Perrin", Email: "alain@example.org"}
	if err := registry.SetIdentity(context.Background(), want); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	got, ok, err := registry.Identity(context.Background())
	if err != nil || !ok || got != want {
		t.Fatalf("expected %+v back, got %+v ok=%v err=%v", want, got, ok, err)
	}
}

func TestModeDefaultsToProduction(t *testing.T) {
	registry := NewRegistryService(newMemSettings())

	mode, err := registry.Mode(context.Background())
	if err != nil || mode != domain.ModeProduction {
		t.Fatalf("expected production default, got %q err=%v", mode, err)
	}

	if err := registry.SetMode(context.Background(), "DEMO"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown mode, got %v", err)
	}
	if err := registry.SetMode(context.Background(), domain.ModeSandbox); err != nil {
		t.Fatalf("set sandbox: %v", err)
	}
	mode, err = registry.Mode(context.Background())
	if err != nil || mode != domain.ModeSandbox {
		t.Fatalf("expected sandbox mode, got %q err=%v", mode, err)
	}
}

func TestWatermarkRoundTrip(t *testing.T) {
	registry := NewRegistryService(newMemSettings())

	if _, ok, err := registry.Watermark(context.Background(), domain.CollectionPeople); err != nil || ok {
		t.Fatalf("expected no watermark initially, ok=%v err=%v", ok, err)
	}

	want := time.Date(2024, 6, 2, 11, 30, 0, 123456789, time.UTC)
	if err := registry.SetWatermark(context.Background(), domain.CollectionPeople, want); err != nil {
		t.Fatalf("set watermark: %v", err)
	}
	got, ok, err := registry.Watermark(context.Background(), domain.CollectionPeople)
	if err != nil || !ok || !got.Equal(want) {
		t.Fatalf("expected %v back, got %v ok=%v err=%v", want, got, ok, err)
	}

	// Watermarks are per collection.
	if _, ok, _ := registry.Watermark(context.Background(), domain.CollectionActivities); ok {
		t.Fatal("expected activities watermark to be independent")
	}
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistryService(newMemSettings())

	id, err := registry.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if err := registry.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	fresh, err := registry.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("device id after clear: %v", err)
	}
	if fresh == id {
		t.Fatal("expected a new device id after factory reset")
	}
}
