package core

import (
	"encoding/json"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in   []int
		want Version
	}{
		{nil, Version{0, 0, 0}},
		{[]int{1}, Version{1, 0, 0}},
		{[]int{1, 2}, Version{1, 2, 0}},
		{[]int{1, 2, 3}, Version{1, 2, 3}},
		{[]int{1, 2, 3, 4}, Version{1, 2, 3}},
	}
	for _, test := range tests {
		if got := NormalizeVersion(test.in); got != test.want {
			t.Errorf("NormalizeVersion(%v) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestParseVersionString(t *testing.T) {
	v, err := ParseVersionString("1.21.44")
	if err != nil {
		t.Fatal(err)
	}
	if v != (Version{1, 21, 44}) {
		t.Errorf("got %v", v)
	}

	v, err = ParseVersionString("1.2")
	if err != nil {
		t.Fatal(err)
	}
	if v != (Version{1, 2, 0}) {
		t.Errorf("short version not zero padded: %v", v)
	}

	if _, err := ParseVersionString("not.a.version"); err == nil {
		t.Error("expected error for non-numeric version")
	}
	if _, err := ParseVersionString(""); err == nil {
		t.Error("expected error for empty version")
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{Version{1, 2, 3}, Version{1, 2, 3}, 0},
		{Version{1, 2, 0}, Version{1, 2, 0}, 0},
		{Version{1, 2, 3}, Version{1, 2, 4}, -1},
		{Version{1, 3, 0}, Version{1, 2, 9}, 1},
		{Version{2, 0, 0}, Version{1, 99, 99}, 1},
	}
	for _, test := range tests {
		if got := CompareVersions(test.a, test.b); got != test.want {
			t.Errorf("CompareVersions(%v, %v) = %d, want %d", test.a, test.b, got, test.want)
		}
		if got := CompareVersions(test.b, test.a); got != -test.want {
			t.Errorf("CompareVersions(%v, %v) = %d, want %d", test.b, test.a, got, -test.want)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	var v Version
	if err := json.Unmarshal([]byte("[1, 2, 3]"), &v); err != nil {
		t.Fatal(err)
	}
	if v != (Version{1, 2, 3}) {
		t.Errorf("array form: got %v", v)
	}

	if err := json.Unmarshal([]byte(`"2.0.9"`), &v); err != nil {
		t.Fatal(err)
	}
	if v != (Version{2, 0, 9}) {
		t.Errorf("string form: got %v", v)
	}

	out, err := json.Marshal(Version{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "[1,0,0]" {
		t.Errorf("marshalled as %s", out)
	}
}

func TestVersionString(t *testing.T) {
	if s := (Version{1, 21, 44}).String(); s != "1.21.44" {
		t.Errorf("got %q", s)
	}
}
