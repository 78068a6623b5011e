package transfer

import (
	"errors"
	"testing"
	"time"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"behavior_packs", "MyPack"}, "behavior_packs/MyPack"},
		{[]string{"/server/", "/worlds/"}, "server/worlds"},
		{[]string{"a\\b", "c"}, "a/b/c"},
		{[]string{"", ".", "x"}, "x"},
		{[]string{}, ""},
	}
	for _, test := range tests {
		if got := Join(test.parts...); got != test.want {
			t.Errorf("Join(%v) = %q, want %q", test.parts, got, test.want)
		}
	}
}

func TestNormalizeRel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"behavior_packs/MyPack", "behavior_packs/MyPack"},
		{"/behavior_packs/", "behavior_packs"},
		{"a\\b", "a/b"},
		{"", ""},
		{".", ""},
		{"/", ""},
	}
	for _, test := range tests {
		if got := normalizeRel(test.in); got != test.want {
			t.Errorf("normalizeRel(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	err := policy.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}

	calls = 0
	var retries []int
	err = policy.Do(func() error {
		calls++
		return errors.New("permanent")
	}, func(attempt int, err error) {
		retries = append(retries, attempt)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}
	// onRetry fires between attempts, not after the last one.
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("onRetry attempts: %v", retries)
	}
}

func TestReadWriteJSON(t *testing.T) {
	b := NewLocal(t.TempDir())
	in := map[string]string{"pack_id": "abc"}
	if err := WriteJSON(b, "worlds/main/world_behavior_packs.json", in); err != nil {
		t.Fatal(err)
	}
	var out map[string]string
	if err := ReadJSON(b, "worlds/main/world_behavior_packs.json", &out); err != nil {
		t.Fatal(err)
	}
	if out["pack_id"] != "abc" {
		t.Errorf("got %v", out)
	}
}
