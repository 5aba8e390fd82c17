package validation

import "testing"

func TestIsValidEthAddress(t *testing.T) {
	valid := []string{
		"0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		"0x0000000000000000000000000000000000000000",
	}
	for _, addr := range valid {
		if !IsValidEthAddress(addr) {
			t.Errorf("IsValidEthAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"0xAAA",
		"742d35Cc6634C0532925a3b844Bc454e4438f44e",           // no prefix
		"0x742d35Cc6634C0532925a3b844Bc454e4438f44e00",       // too long
		"0xZZZd35Cc6634C0532925a3b844Bc454e4438f44e",         // non-hex
		"0x742d35Cc6634C0532925a3b844Bc454e4438f44e extra",   // trailing junk
	}
	for _, addr := range invalid {
		if IsValidEthAddress(addr) {
			t.Errorf("IsValidEthAddress(%q) = true, want false", addr)
		}
	}
}

func TestSanitizeAddress(t *testing.T) {
	cases := map[string]string{
		"  0xABCDEF1234567890abcdef1234567890ABCDEF12  ": "0xabcdef1234567890abcdef1234567890abcdef12",
		"abcdef1234567890abcdef1234567890abcdef12":       "0xabcdef1234567890abcdef1234567890abcdef12",
		"0xabc": "0xabc",
	}
	for in, want := range cases {
		if got := SanitizeAddress(in); got != want {
			t.Errorf("SanitizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidAmount(t *testing.T) {
	valid := []string{"1", "0.5", "1000", "2500.75"}
	for _, v := range valid {
		if !IsValidAmount(v) {
			t.Errorf("IsValidAmount(%q) = false, want true", v)
		}
	}

	invalid := []string{"", "0", "0.0", "-5", "1.2.3", ".5", "5.", "abc", "1e3"}
	for _, v := range invalid {
		if IsValidAmount(v) {
			t.Errorf("IsValidAmount(%q) = true, want false", v)
		}
	}
}

func TestIsValidHex(t *testing.T) {
	if !IsValidHex("0xdeadbeef") || !IsValidHex("deadbeef") {
		t.Error("expected hex strings to validate")
	}
	if IsValidHex("not-hex") {
		t.Error("expected non-hex string to fail")
	}
}
