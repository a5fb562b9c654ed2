package util

import "testing"

func TestParseQty(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain", input: "2", want: 2},
		{name: "thousand with space", input: "1 000", want: 1000},
		{name: "thousand with nbsp", input: "1\u00a0000 шт", want: 1000},
		{name: "decimal comma", input: "1,5 м", want: 1.5},
		{name: "decimal dot", input: "1.5", want: 1.5},
		{name: "with unit", input: "10 шт", want: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseQty(tc.input)
			if parsed == nil {
				t.Fatalf("qty is nil")
			}
			if *parsed != tc.want {
				t.Fatalf("got %v want %v", *parsed, tc.want)
			}
		})
	}
}

func TestParseQtyEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "шт", "n/a"} {
		if got := ParseQty(in); got != nil {
			t.Fatalf("ParseQty(%q)=%v want nil", in, *got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(100); got != "100" {
		t.Fatalf("got %q", got)
	}
	if got := FormatNumber(12.5); got != "12.5" {
		t.Fatalf("got %q", got)
	}
}
