package sandbox

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestPolicyAllowsInline(t *testing.T) {
	var policyTests = []struct {
		raw     string
		nonce   string
		allowed bool
	}{
		{"", "", true},
		{"img-src 'self'", "", true},
		{"default-src 'self'", "", false},
		{"script-src 'self'", "", false},
		{"script-src 'self' 'unsafe-inline'", "", true},
		{"script-src 'unsafe-inline' 'nonce-abc'", "", false},
		{"script-src 'nonce-abc'", "abc", true},
		{"script-src 'nonce-abc'", "ABC", false},
		{"script-src 'unsafe-inline' 'sha256-deadbeef'", "", false},
		{"default-src 'none'; script-src 'unsafe-inline'", "", true},
		{"script-src-elem 'none'; script-src 'unsafe-inline'", "", false},
		{"SCRIPT-SRC 'UNSAFE-INLINE'", "", true},
	}

	for _, tt := range policyTests {
		if got := parsePolicy(tt.raw).allowsInline(tt.nonce, "run()"); got != tt.allowed {
			t.Fatalf("policy %q nonce %q: expected %v got %v", tt.raw, tt.nonce, tt.allowed, got)
		}
	}
}

func TestPolicyAllowsHash(t *testing.T) {
	sum := sha256.Sum256([]byte("run()"))
	raw := "script-src 'sha256-" + base64.StdEncoding.EncodeToString(sum[:]) + "'"

	if !parsePolicy(raw).allowsInline("", "run()") {
		t.Fatalf("matching hash should allow the script")
	}
	if parsePolicy(raw).allowsInline("", "run();") {
		t.Fatalf("different source should be blocked")
	}
}

func TestMetaPolicies(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head>
		<meta http-equiv="content-security-policy" content="script-src 'self'">
		<meta http-equiv="refresh" content="5">
		<meta http-equiv="Content-Security-Policy" content="  ">
	</head></html>`))
	if err != nil {
		t.Fatalf("error parsing: %s\n", err)
	}

	policies := metaPolicies(doc)
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy got %d", len(policies))
	}
	if policies[0].allowsInline("", "run()") {
		t.Fatalf("script-src 'self' should block inline scripts")
	}
}
