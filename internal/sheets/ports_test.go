package sheets

import "testing"

func TestTabName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"  Assets ", 2025, "2025 Assets"},
		{"2023 Transactions", 2024, "2023 Transactions"},
		{"1800 Club", 2024, "2024 1800 Club"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := TabName(tt.base, tt.year); got != tt.want {
			t.Errorf("TabName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
