package util

import (
	"strconv"
	"strings"
	"testing"
)

func TestPkToHash(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "simple string", input: "test"},
		{name: "empty string", input: ""},
		{name: "ssh key format", input: "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PkToHash(tt.input)
			if len(result) != 64 {
				t.Errorf("Expected hash length 64, got %d", len(result))
			}
			// Verify it's consistent
			if result != PkToHash(tt.input) {
				t.Error("Hash should be consistent across calls")
			}
		})
	}
}

func TestPkToHashDifferentInputs(t *testing.T) {
	if PkToHash("input1") == PkToHash("input2") {
		t.Error("Different inputs should produce different hashes")
	}
}

func TestRandomString(t *testing.T) {
	for _, length := range []int{10, 20, 32, 64} {
		t.Run("length_"+strconv.Itoa(length), func(t *testing.T) {
			result := RandomString(length)
			if len(result) != length {
				t.Errorf("Expected length %d, got %d", length, len(result))
			}
		})
	}
}

func TestRandomStringUniqueness(t *testing.T) {
	results := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := RandomString(32)
		if results[s] {
			t.Errorf("RandomString produced duplicate: %s", s)
		}
		results[s] = true
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "newlines replaced",
			input:    "line1\nline2\nline3",
			expected: "line1 line2 line3",
		},
		{
			name:     "html escaped",
			input:    "<script>alert('xss')</script>",
			expected: "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{
			name:     "combined newlines and html",
			input:    "<div>\ntest\n</div>",
			expected: "&lt;div&gt; test &lt;/div&gt;",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "normal text",
			input:    "Hello World",
			expected: "Hello World",
		},
		{
			name:     "ampersand",
			input:    "Tom & Jerry",
			expected: "Tom &amp; Jerry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeInput(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{
			name:     "short stays whole",
			input:    "hello",
			max:      10,
			expected: "hello",
		},
		{
			name:     "exact length stays whole",
			input:    "hello",
			max:      5,
			expected: "hello",
		},
		{
			name:     "long gets ellipsis",
			input:    "hello world",
			max:      5,
			expected: "hello…",
		},
		{
			name:     "multibyte cut on rune boundary",
			input:    "grüße aus köln",
			max:      4,
			expected: "grüß…",
		},
		{
			name:     "emoji not split",
			input:    "🎬🎬🎬🎬",
			max:      2,
			expected: "🎬🎬…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestPrettyPrint(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{
			name:  "simple map",
			input: map[string]string{"key": "value"},
		},
		{
			name:  "nested structure",
			input: map[string]interface{}{"outer": map[string]int{"inner": 42}},
		},
		{
			name:  "array",
			input: []int{1, 2, 3, 4, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(PrettyPrint(tt.input)) == 0 {
				t.Error("PrettyPrint returned empty string")
			}
		})
	}
}

func TestMarkdownLinksToTerminal(t *testing.T) {
	input := "see [the rules](https://campus.example/rules) before posting"
	result := MarkdownLinksToTerminal(input)

	if strings.Contains(result, "[the rules]") {
		t.Error("Markdown link syntax should be rewritten")
	}
	if !strings.Contains(result, "https://campus.example/rules") {
		t.Error("Link target should survive the rewrite")
	}
	if !strings.Contains(result, "the rules") {
		t.Error("Link text should survive the rewrite")
	}
}

func TestMarkdownLinksToTerminalPlainText(t *testing.T) {
	input := "no links here"
	if MarkdownLinksToTerminal(input) != input {
		t.Error("Text without links should pass through unchanged")
	}
}
