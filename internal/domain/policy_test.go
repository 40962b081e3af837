package domain

import (
	"strings"
	"testing"
)

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy(strings.NewReader("reserved:\n  - eth\n  - Kenya\n"))
	if err != nil {
		t.Fatalf("LoadPolicy error: %v", err)
	}
	if len(p.Reserved) != 2 {
		t.Fatalf("Reserved = %v, want 2 words", p.Reserved)
	}

	v := p.Validator()
	if v.Validate("kenya").Valid {
		t.Fatal("kenya should be reserved by the loaded policy")
	}
	if !v.Validate("com").Valid {
		t.Fatal("com is not in the loaded policy")
	}
}

func TestLoadPolicy_Empty(t *testing.T) {
	p, err := LoadPolicy(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadPolicy error: %v", err)
	}
	if len(p.Reserved) != 0 {
		t.Fatalf("Reserved = %v, want none", p.Reserved)
	}
}

func TestLoadPolicy_Malformed(t *testing.T) {
	if _, err := LoadPolicy(strings.NewReader("reserved: {")); err == nil {
		t.Fatal("expected decode error")
	}
}
