package validator

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"ada@example.com", "a.b+c@sub.example.co"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("%q rejected: %v", email, err)
		}
	}
	invalid := []string{"", "ada", "ada@", "@example.com", "ada example@example.com", "ada@example"}
	for _, email := range invalid {
		if !errors.Is(ValidateEmail(email), ErrInvalidEmail) {
			t.Fatalf("%q accepted", email)
		}
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Ada Obi"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if !errors.Is(ValidateName("A"), ErrInvalidName) {
		t.Fatal("one-character name accepted")
	}
	if !errors.Is(ValidateName("   "), ErrInvalidName) {
		t.Fatal("whitespace-only name accepted")
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+2348012345678", "08012345678", "1234567"}
	for _, phone := range valid {
		if err := ValidatePhone(phone); err != nil {
			t.Fatalf("%q rejected: %v", phone, err)
		}
	}
	invalid := []string{"", "123", "phone", "+234 801 234 5678", "1234567890123456"}
	for _, phone := range invalid {
		if !errors.Is(ValidatePhone(phone), ErrInvalidPhone) {
			t.Fatalf("%q accepted", phone)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	for _, password := range []string{"Sup3r$ecret", "Aa1$bcde"} {
		if err := ValidatePassword(password); err != nil {
			t.Fatalf("%q rejected: %v", password, err)
		}
	}
	weak := []string{
		"alllowercase1$",
		"ALLUPPERCASE1$",
		"NoDigitsHere$",
		"NoSpecials123",
		"Ab1$",
	}
	for _, password := range weak {
		if !errors.Is(ValidatePassword(password), ErrInvalidPassword) {
			t.Fatalf("%q accepted", password)
		}
	}
}
