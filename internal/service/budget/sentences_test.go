package budget

import "testing"

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "basic punctuation",
			text: "Hello world. How are you? I am fine.",
			want: []string{"Hello world.", "How are you?", "I am fine."},
		},
		{
			name: "no terminator stays whole",
			text: "a fragment without punctuation",
			want: []string{"a fragment without punctuation"},
		},
		{
			name: "dot inside a word does not split",
			text: "Visit example.com for details. Thanks!",
			want: []string{"Visit example.com for details.", "Thanks!"},
		},
		{
			name: "cjk enders without spaces",
			text: "你好世界。这是一个测试。",
			want: []string{"你好世界。", "这是一个测试。"},
		},
		{
			name: "trailing fragment kept",
			text: "First sentence. And a dangling tail",
			want: []string{"First sentence.", "And a dangling tail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d sentences %q, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
