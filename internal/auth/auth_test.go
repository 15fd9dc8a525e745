package auth

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("token %q lacks prefix %q", token, TokenPrefix)
	}
	if !IsValidTokenFormat(token) {
		t.Errorf("IsValidTokenFormat(%q) = false", token)
	}

	other, _ := GenerateToken()
	if token == other {
		t.Error("two generated tokens are identical")
	}
}

func TestHashAndVerify(t *testing.T) {
	token, _ := GenerateToken()
	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	if strings.Contains(hash, strings.TrimPrefix(token, TokenPrefix)) {
		t.Fatal("hash contains the secret")
	}

	other, _ := GenerateToken()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"matching", token, true},
		{"different token", other, false},
		{"missing prefix", strings.TrimPrefix(token, TokenPrefix), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyToken(tt.token, hash); got != tt.want {
				t.Errorf("VerifyToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidTokenFormat(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{TokenPrefix + strings.Repeat("ab", TokenLength), true},
		{TokenPrefix + strings.Repeat("zz", TokenLength), false},
		{TokenPrefix + "abcd", false},
		{"sk_live_" + strings.Repeat("ab", TokenLength), false},
	}
	for _, tt := range tests {
		if got := IsValidTokenFormat(tt.token); got != tt.want {
			t.Errorf("IsValidTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Bearer cm_sk_abc", "cm_sk_abc", true},
		{"bearer   cm_sk_abc ", "cm_sk_abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMaskToken(t *testing.T) {
	token := TokenPrefix + "a1b2c3d4" + strings.Repeat("0", 56)
	if got := MaskToken(token); got != "cm_sk_a1b2c3d4****...****" {
		t.Errorf("MaskToken() = %q", got)
	}
	if got := MaskToken("short"); got != "****" {
		t.Errorf("MaskToken(short) = %q", got)
	}
}
