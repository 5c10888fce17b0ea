package host

import (
	"errors"
	"testing"

	"vlistindex/config"
	"vlistindex/vlerr"
	"vlistindex/vlist"
)

func TestNewValidatesChunkSize(t *testing.T) {
	_, err := New(10, 0, 5.0, vlist.Vertical, config.Default())
	if err == nil {
		t.Fatal("expected error for chunk_size 0")
	}
	var he Error
	if !errors.As(err, &he) {
		t.Fatalf("expected host.Error, got %T", err)
	}
	if he.Kind != string(vlerr.InvalidConfiguration) {
		t.Fatalf("kind = %q, want %q", he.Kind, vlerr.InvalidConfiguration)
	}
}

func TestBindingDelegatesAndTagsErrors(t *testing.T) {
	b, err := New(10, 3, 10.0, vlist.Vertical, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.TotalSize() != 100.0 {
		t.Fatalf("total_size = %v, want 100.0", b.TotalSize())
	}

	if err := b.UpdateItemSize(1, 40.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalSize() != 130.0 {
		t.Fatalf("total_size = %v, want 130.0", b.TotalSize())
	}

	_, err = b.GetItemSize(100)
	if err == nil {
		t.Fatal("expected IndexOutOfBounds error")
	}
	var he Error
	if !errors.As(err, &he) || he.Kind != string(vlerr.IndexOutOfBounds) {
		t.Fatalf("unexpected error: %v", err)
	}
}
