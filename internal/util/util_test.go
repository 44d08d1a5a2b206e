package util

import "testing"

func TestHideSecret(t *testing.T) {
	cases := map[string]string{
		"abcdefghijkl": "abcd...ijkl",
		"abcdef":       "ab...ef",
		"abc":          "a...c",
		"ab":           "ab",
	}
	for in, want := range cases {
		if got := HideSecret(in); got != want {
			t.Fatalf("HideSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	got := MaskSensitiveQuery("out_trade_no=O1&sign=0123456789abcdef&trade_status=TRADE_SUCCESS")
	want := "out_trade_no=O1&sign=0123...cdef&trade_status=TRADE_SUCCESS"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if plain := "a=1&b=2"; MaskSensitiveQuery(plain) != plain {
		t.Fatalf("expected query without secrets unchanged")
	}
}

func TestMaskFields(t *testing.T) {
	in := map[string]string{"sign": "0123456789abcdef", "card_key": "XXXX-YYYY-ZZZZ", "money": "1.00"}
	out := MaskFields(in)
	if out["money"] != "1.00" {
		t.Fatalf("expected money untouched")
	}
	if out["sign"] == in["sign"] || out["card_key"] == in["card_key"] {
		t.Fatalf("expected sensitive fields masked: %+v", out)
	}
	if in["sign"] != "0123456789abcdef" {
		t.Fatalf("input must not be modified")
	}
}
