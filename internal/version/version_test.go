package version

import (
	"strings"
	"testing"
)

// Тесты меняют глобальный BuildDate, поэтому без t.Parallel.
func withBuildDate(t *testing.T, date string) {
	t.Helper()
	old := BuildDate
	BuildDate = date
	t.Cleanup(func() { BuildDate = old })
}

func TestCalculateBuildID(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		expected  int
		wantError bool
	}{
		{
			name:     "epoch date",
			date:     "2024-01-01",
			expected: 0,
		},
		{
			name:     "next day after epoch",
			date:     "2024-01-02",
			expected: 1,
		},
		{
			name:     "leap year",
			date:     "2025-01-01",
			expected: 366,
		},
		{
			name:     "several years later",
			date:     "2028-01-01",
			expected: 1461,
		},
		{
			name:      "invalid format",
			date:      "invalid",
			wantError: true,
		},
		{
			name:      "empty date",
			date:      "",
			wantError: true,
		},
		{
			name:      "before epoch",
			date:      "2023-12-31",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildDate(t, tt.date)

			got, err := CalculateBuildID()

			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil (id=%d)", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.expected {
				t.Errorf("CalculateBuildID() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	t.Run("known build", func(t *testing.T) {
		withBuildDate(t, "2024-01-11")
		info := Info()
		if !info.Calculated || info.BuildID != 10 {
			t.Errorf("Info() = %+v", info)
		}
		if info.WireVersion != 1 {
			t.Errorf("WireVersion = %d, want 1", info.WireVersion)
		}
		if s := String(); !strings.Contains(s, "Build 10") || !strings.Contains(s, "wire[v1]") {
			t.Errorf("String() = %q", s)
		}
	})

	t.Run("unknown build", func(t *testing.T) {
		withBuildDate(t, "")
		info := Info()
		if info.Calculated || info.Error == "" {
			t.Errorf("Info() = %+v", info)
		}
		if !strings.HasPrefix(String(), "Build unknown") {
			t.Errorf("String() = %q", String())
		}
	})
}
