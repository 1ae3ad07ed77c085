package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestUpsert_MergesSources(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "ACME", "chat", json.RawMessage(`{"What":"pumps"}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, "ACME", "filings", json.RawMessage(`{"When":"1962"}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	data, _, err := s.Get(ctx, "ACME")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var merged map[string]map[string]string
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if merged["chat"]["What"] != "pumps" {
		t.Errorf("chat entry = %v", merged["chat"])
	}
	if merged["filings"]["When"] != "1962" {
		t.Errorf("filings entry = %v", merged["filings"])
	}
}

func TestUpsert_SameSourceReplaces(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	for _, payload := range []string{`{"What":"old"}`, `{"What":"new"}`} {
		if err := s.Upsert(ctx, "ACME", "chat", json.RawMessage(payload)); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	data, _, err := s.Get(ctx, "ACME")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var merged map[string]map[string]string
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if merged["chat"]["What"] != "new" {
		t.Errorf("chat entry = %v, want replacement", merged["chat"])
	}
}

func TestGet_NotFound(t *testing.T) {
	s := OpenMemory(t)
	if _, _, err := s.Get(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTickers(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	for _, tk := range []string{"AAA", "BBB"} {
		if err := s.Upsert(ctx, tk, "chat", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	got, err := s.Tickers(ctx)
	if err != nil {
		t.Fatalf("Tickers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Tickers = %v, want 2 entries", got)
	}
}
