package core

import "testing"

func TestCategoriesPrecedence(t *testing.T) {
	want := []Category{CategoryProcedural, CategorySemantic, CategoryEpisodic, CategoryGraph}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	for _, c := range []Category{"", "working", "Episodic"} {
		if c.Valid() {
			t.Errorf("%q should be invalid", c)
		}
	}
}

func TestImportanceTierScore(t *testing.T) {
	tests := []struct {
		tier ImportanceTier
		want float64
	}{
		{TierCritical, 1.0},
		{TierHigh, 0.75},
		{TierNormal, 0.5},
		{TierLow, 0.25},
		{"", 0.5},
		{"urgent", 0.5},
	}
	for _, tt := range tests {
		if got := tt.tier.Score(); got != tt.want {
			t.Errorf("Score(%q) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestParseRankingStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    RankingStrategy
		wantErr bool
	}{
		{"recency", RankRecency, false},
		{"confidence", RankConfidence, false},
		{"relevance", RankRelevance, false},
		{"importance", RankImportance, false},
		{"balanced", RankBalanced, false},
		{"", RankBalanced, false},
		{"hybrid", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRankingStrategy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRankingStrategy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRankingStrategy(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRankingStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePackingStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    PackingStrategy
		wantErr bool
	}{
		{"greedy", PackGreedy, false},
		{"diverse", PackDiverse, false},
		{"dense", PackDense, false},
		{"", PackGreedy, false},
		{"knapsack", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePackingStrategy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePackingStrategy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePackingStrategy(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePackingStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
