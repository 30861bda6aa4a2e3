package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		ParentID:   "parent-1",
		ParentName: "Robin",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.ParentID != "parent-1" {
		t.Errorf("ParentID = %q, want %q", got.ParentID, "parent-1")
	}
	if got.ParentName != "Robin" {
		t.Errorf("ParentName = %q, want %q", got.ParentName, "Robin")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestParentID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{ParentID: "p42"})
	if ParentID(ctx) != "p42" {
		t.Errorf("ParentID = %q, want %q", ParentID(ctx), "p42")
	}
}

func TestParentIDMissing(t *testing.T) {
	if ParentID(context.Background()) != "" {
		t.Error("expected empty parent id for missing context")
	}
}
