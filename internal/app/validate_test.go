package app

import (
	"testing"
	"time"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

func TestParseDuration(t *testing.T) {
	pol := availability.DefaultPolicy()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"30", 30, true},
		{"15", 15, true},
		{"60", 60, true},
		{"45", 0, false},
		{"0", 0, false},
		{"-30", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseDuration(tc.in, pol)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseDuration(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBeyondAdvanceWindow(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, paris)

	if beyondAdvanceWindow("2026-01-15", paris, now, 60) {
		t.Fatal("date within window flagged as beyond")
	}
	if beyondAdvanceWindow("2026-03-02", paris, now, 60) {
		t.Fatal("horizon day itself must still be offered")
	}
	if !beyondAdvanceWindow("2026-03-03", paris, now, 60) {
		t.Fatal("date past horizon not flagged")
	}
	if beyondAdvanceWindow("garbage", paris, now, 60) {
		t.Fatal("unparseable date must not be flagged here")
	}
}
