package node

import "testing"

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "  ```json\n{\"a\":1}\n```  ", want: `{"a":1}`},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean object",
			in:   `{"score":8}`,
			want: `{"score":8}`,
		},
		{
			name: "object inside prose",
			in:   `好的，评估结果如下：{"score":8,"passed":true}希望有帮助`,
			want: `{"score":8,"passed":true}`,
		},
		{
			name: "fenced object",
			in:   "```json\n{\"score\": 8}\n```",
			want: `{"score": 8}`,
		},
		{
			name: "array inside prose",
			in:   `提取到的实体：["林远","沈清秋"]`,
			want: `["林远","沈清秋"]`,
		},
		{
			name: "object before array",
			in:   `{"names":["a","b"]} 附注`,
			want: `{"names":["a","b"]}`,
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.in); got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
