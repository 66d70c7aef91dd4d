package currency

import (
	"testing"

	decimal "github.com/shopspring/decimal"
)

func TestToSystemHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		code string
		want int64
	}{
		{"10.55", "EUR", 1055},
		{"10.555", "EUR", 1056}, // half-up 进位
		{"10.554", "EUR", 1055},
		{"0.005", "EUR", 1},
		{"0", "EUR", 0},
		{"1500", "JPY", 1500},  // 零小数币种
		{"1500.5", "JPY", 1501},
		{"1.2345", "KWD", 1235}, // 三位小数币种
	}
	for _, c := range cases {
		d, err := decimal.NewFromString(c.in)
		if err != nil {
			t.Fatalf("parse %s: %v", c.in, err)
		}
		if got := ToSystem(d, c.code); got != c.want {
			t.Fatalf("ToSystem(%s, %s) = %d, want %d", c.in, c.code, got, c.want)
		}
	}
}

func TestFromSystemRoundTrip(t *testing.T) {
	for _, code := range []string{"EUR", "JPY", "KWD"} {
		for _, minor := range []int64{0, 1, 99, 1055, 123456789} {
			d := FromSystem(minor, code)
			if got := ToSystem(d, code); got != minor {
				t.Fatalf("round trip %d %s: got %d", minor, code, got)
			}
		}
	}
}

func TestExponent(t *testing.T) {
	if Exponent("EUR") != 2 {
		t.Fatal("EUR exponent must default to 2")
	}
	if Exponent("jpy") != 0 {
		t.Fatal("code lookup must be case-insensitive")
	}
	if Exponent(" BHD ") != 3 {
		t.Fatal("code lookup must trim whitespace")
	}
	if Exponent("XYZ") != 2 {
		t.Fatal("unknown code defaults to 2")
	}
}

func TestVendorUnitScale(t *testing.T) {
	unit := VendorUnit{Scale: 100}

	// 厂商单位是系统最小单位的 100 倍：厂商 12.34 -> 1234 最小单位
	d := decimal.RequireFromString("12.34")
	if got := unit.FromVendor(d, "EUR"); got != 1234 {
		t.Fatalf("FromVendor = %d, want 1234", got)
	}
	if got := unit.ToVendor(1234, "EUR"); !got.Equal(d) {
		t.Fatalf("ToVendor = %s, want 12.34", got)
	}
}

func TestVendorUnitPassThrough(t *testing.T) {
	// Scale<=1 时退化为普通币种换算
	unit := VendorUnit{Scale: 1}
	d := decimal.RequireFromString("10.55")
	if got := unit.FromVendor(d, "EUR"); got != 1055 {
		t.Fatalf("FromVendor = %d, want 1055", got)
	}
	if got := unit.ToVendor(1055, "EUR"); !got.Equal(d) {
		t.Fatalf("ToVendor = %s, want 10.55", got)
	}
}
