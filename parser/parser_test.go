package parser

import (
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{
			name:     "dollar with cents",
			input:    "$1,299.99",
			expected: 1299,
		},
		{
			name:     "naira with spaces",
			input:    "₦ 250,000",
			expected: 250000,
		},
		{
			name:     "range keeps first integer part",
			input:    "$10.50 - $20.00",
			expected: 10,
		},
		{
			name:     "whitespace",
			input:    "  45  ",
			expected: 45,
		},
		{
			name:     "no digits",
			input:    "See price in cart",
			expected: 0,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePrice(tt.input); got != tt.expected {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJoinPrice(t *testing.T) {
	tests := []struct {
		whole, fraction string
		expected        float64
	}{
		{whole: "1,299.", fraction: "99", expected: 1299.99},
		{whole: "24", fraction: "", expected: 24},
		{whole: "", fraction: "99", expected: 0},
	}

	for _, tt := range tests {
		if got := JoinPrice(tt.whole, tt.fraction); got != tt.expected {
			t.Errorf("JoinPrice(%q, %q) = %v, want %v", tt.whole, tt.fraction, got, tt.expected)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name  string
		input string
		scale float64
		want  float64
		isNil bool
	}{
		{name: "out of five", input: "4.5 out of 5 stars", want: 4.5},
		{name: "comma decimal", input: "3,8", want: 3.8},
		{name: "percent scaled", input: "90%", scale: 0.05, want: 4.5},
		{name: "out of range", input: "87", isNil: true},
		{name: "missing", input: "", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRating(tt.input, tt.scale)
			if tt.isNil {
				if got != nil {
					t.Fatalf("ParseRating(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("ParseRating(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "(1,234)", expected: 1234},
		{input: "2.3K ratings", expected: 2300},
		{input: "no reviews yet", expected: 0},
	}

	for _, tt := range tests {
		if got := ParseCount(tt.input); got != tt.expected {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestParseShipping(t *testing.T) {
	if got := ParseShipping(""); got != nil {
		t.Fatalf("empty shipping should be unknown, got %v", *got)
	}
	if got := ParseShipping("FREE delivery"); got == nil || *got != 0 {
		t.Fatalf("free shipping should be 0, got %v", got)
	}
	if got := ParseShipping("+$4.99 shipping"); got == nil || *got != 4.99 {
		t.Fatalf("shipping = %v, want 4.99", got)
	}
	if got := ParseShipping("calculated at checkout"); got != nil {
		t.Fatalf("shipping without amount should be unknown, got %v", *got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		href     string
		expected string
	}{
		{name: "absolute", origin: "https://www.jumia.com.ng", href: "https://other.test/x", expected: "https://other.test/x"},
		{name: "protocol relative", origin: "https://www.jumia.com.ng", href: "//cdn.test/img.jpg", expected: "https://cdn.test/img.jpg"},
		{name: "root relative", origin: "https://www.jumia.com.ng/", href: "/phone-123.html", expected: "https://www.jumia.com.ng/phone-123.html"},
		{name: "bare relative", origin: "https://jiji.ng", href: "item/5", expected: "https://jiji.ng/item/5"},
		{name: "empty", origin: "https://jiji.ng", href: "  ", expected: ""},
		{name: "javascript", origin: "https://jiji.ng", href: "javascript:void(0)", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbsoluteURL(tt.origin, tt.href); got != tt.expected {
				t.Errorf("AbsoluteURL(%q, %q) = %q, want %q", tt.origin, tt.href, got, tt.expected)
			}
		})
	}
}
