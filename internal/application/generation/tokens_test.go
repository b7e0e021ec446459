package generation

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "below one token", text: "abc", want: 0},
		{name: "exact multiple", text: "abcdabcd", want: 2},
		{name: "counts runes not bytes", text: "一二三四", want: 1},
		{name: "mixed rune widths", text: "第1章：开端abc", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestBudgetForWindow(t *testing.T) {
	b := BudgetForWindow(128000)
	if b.Total != 128000 {
		t.Errorf("Total = %d, want 128000", b.Total)
	}
	if b.History != 32000 {
		t.Errorf("History = %d, want 32000", b.History)
	}
	if b.ChatHistory != 32000 {
		t.Errorf("ChatHistory = %d, want 32000", b.ChatHistory)
	}
	if b.Retrieved != 64000 {
		t.Errorf("Retrieved = %d, want 64000", b.Retrieved)
	}
}

func TestBudgetForWindowNegative(t *testing.T) {
	b := BudgetForWindow(-1)
	if b.Total != 0 || b.History != 0 || b.ChatHistory != 0 || b.Retrieved != 0 {
		t.Errorf("negative window should yield zero budget, got %+v", b)
	}
}
