package util

import "testing"

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Bosch-1 234", want: "BOSCH1234"},
		{in: "BOSCH1234", want: "BOSCH1234"},
		{in: "0 986 AB1", want: "0986AB1"},
		{in: "a.b/c-d\te", want: "ABCDE"},
		{in: "", want: ""},
		{in: "мерседес", want: "МЕРСЕДЕС"},
	}
	for _, tc := range cases {
		if got := NormalizeToken(tc.in); got != tc.want {
			t.Fatalf("NormalizeToken(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
	if NormalizeToken("Bosch-1 234") != NormalizeToken("BOSCH1234") {
		t.Fatal("punctuation-insensitive comparison failed")
	}
}

func TestNormalizeTokenIdempotent(t *testing.T) {
	for _, in := range []string{"Bosch-1 234", " vag/06A.115 ", "x-y.z", "ÄÖü 1/2"} {
		once := NormalizeToken(in)
		if twice := NormalizeToken(once); twice != once {
			t.Fatalf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"":                                 "",
		"  plain  ":                        "plain",
		"<b>2</b> дн.":                     "2 дн.",
		"<span class='x'>Склад</span><br>": "Склад",
		"a\n\n  b":                         "a b",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Fatalf("StripMarkup(%q)=%q want %q", in, got, want)
		}
	}
}

func TestStripTrailingParenthetical(t *testing.T) {
	cases := map[string]string{
		"Retail (profileId=12)": "Retail",
		"  Retail  ":            "Retail",
		"A (x) B":               "A (x) B",
		"A (x) (y)":             "A (x)",
		"":                      "",
	}
	for in, want := range cases {
		if got := StripTrailingParenthetical(in); got != want {
			t.Fatalf("StripTrailingParenthetical(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	if got := NormalizeHeader("  Кол-во\u00a0Шт  "); got != "кол-во шт" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeHeader("Артикул Ёмкость"); got != "артикул емкость" {
		t.Fatalf("got %q", got)
	}
}
