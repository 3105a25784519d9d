package ch

import (
	"context"
	"strings"
	"testing"
)

func TestBuildClientInfo(t *testing.T) {
	ci := BuildClientInfo(" resumer ", "v1")
	if len(ci.Products) != 5 {
		t.Fatalf("products = %+v", ci.Products)
	}
	if ci.Products[0].Name != "celoid" || ci.Products[0].Version != "v1" {
		t.Fatalf("first product = %+v", ci.Products[0])
	}
	if ci.Products[1].Version != "resumer" {
		t.Fatalf("role not trimmed: %q", ci.Products[1].Version)
	}
	if !strings.HasPrefix(ci.Products[2].Version, "go") {
		t.Fatalf("go version = %q", ci.Products[2].Version)
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{URL: "://nope"}); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestInsertRejectsOddTableNames(t *testing.T) {
	c := &CH{}
	err := c.Insert(context.Background(), "execution_events; DROP TABLE x", [][]any{{1}})
	if err == nil || !strings.Contains(err.Error(), "bad table name") {
		t.Fatalf("err = %v", err)
	}
	if err := c.Insert(context.Background(), "execution_events", nil); err != nil {
		t.Fatalf("empty insert should be a no-op, got %v", err)
	}
}
