package policyfeed

import (
	"testing"

	"xdao.co/villages/policyupdate"
)

func buildUpdate(t *testing.T, villageID string, n int) policyupdate.Update {
	t.Helper()
	policy := map[string]any{"max_window_days": n}
	u, err := policyupdate.Build(villageID, policy, policyupdate.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return u
}

func TestStoreIsIdempotentOnPolicyHash(t *testing.T) {
	dir := t.TempDir()
	feed := New(dir)
	u := buildUpdate(t, "v1", 1)

	if err := feed.Store("v1", u); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := feed.Store("v1", u); err != nil {
		t.Fatalf("Store again: %v", err)
	}

	all, err := feed.Iter("v1")
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 stored update, got %d", len(all))
	}
}

func TestLatestAndFilterSince(t *testing.T) {
	dir := t.TempDir()
	feed := New(dir)

	var hashes []string
	for i := 0; i < 3; i++ {
		u := buildUpdate(t, "v1", i)
		h, _ := u["policy_hash"].(string)
		hashes = append(hashes, h)
		if err := feed.Store("v1", u); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	latest, ok, err := feed.Latest("v1")
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if latest == nil {
		t.Fatal("expected a latest update")
	}

	all, err := feed.Iter("v1")
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	since, err := feed.FilterSince("v1", all[0]["policy_hash"].(string))
	if err != nil {
		t.Fatalf("FilterSince: %v", err)
	}
	if len(since) != len(all)-1 {
		t.Fatalf("expected %d updates after the first, got %d", len(all)-1, len(since))
	}
}

func TestPaginateConcatenationHasNoGapsOrDuplicates(t *testing.T) {
	dir := t.TempDir()
	feed := New(dir)
	for i := 0; i < 7; i++ {
		if err := feed.Store("v1", buildUpdate(t, "v1", i)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	all, err := feed.Iter("v1")
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}

	var collected []string
	cursor := ""
	for {
		page, next, err := Paginate(all, cursor, 3)
		if err != nil {
			t.Fatalf("Paginate: %v", err)
		}
		for _, u := range page {
			collected = append(collected, u["policy_hash"].(string))
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if len(collected) != len(all) {
		t.Fatalf("expected %d items, got %d", len(all), len(collected))
	}
}
