package services

import "testing"

func TestFormat_USD_PrefixedDollarSign(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(12345, 1); got != "$123.45" {
		t.Errorf("Format(12345, 1) = %q, want %q", got, "$123.45")
	}
}

func TestFormat_RUB_SuffixedWithCommaSeparator(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(12345, 5); got != "123,45 руб." {
		t.Errorf("Format(12345, 5) = %q, want %q", got, "123,45 руб.")
	}
}

func TestFormat_UAH_SuffixedHryvnia(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(50000, 18); got != "500,00 ₴" {
		t.Errorf("Format(50000, 18) = %q, want %q", got, "500,00 ₴")
	}
}

func TestFormat_EUR_PrefixedEuroSign(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(99, 3); got != "€0.99" {
		t.Errorf("Format(99, 3) = %q, want %q", got, "€0.99")
	}
}

func TestFormat_ZeroBalance(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(0, 1); got != "$0.00" {
		t.Errorf("Format(0, 1) = %q, want %q", got, "$0.00")
	}
}

func TestFormat_UnknownCode_DefaultsToUSD(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Format(12345, 999); got != "$123.45" {
		t.Errorf("Format(12345, 999) = %q, want %q", got, "$123.45")
	}
}

func TestCode_KnownAndUnknown(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Code(1); got != "USD" {
		t.Errorf("Code(1) = %q, want USD", got)
	}
	if got := s.Code(5); got != "RUB" {
		t.Errorf("Code(5) = %q, want RUB", got)
	}
	if got := s.Code(999); got != "USD" {
		t.Errorf("Code(999) = %q, want USD (vendor default)", got)
	}
}

func TestMajor_MinorUnitsDividedBy100(t *testing.T) {
	s := NewCurrencyService()

	if got := s.Major(12345); got != 123.45 {
		t.Errorf("Major(12345) = %v, want 123.45", got)
	}
	if got := s.Major(0); got != 0 {
		t.Errorf("Major(0) = %v, want 0", got)
	}
}
