package sandbox

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// policy is one Content-Security-Policy, only script directives are enforced
type policy struct {
	raw        string
	directives map[string][]string
}

func parsePolicy(raw string) *policy {
	p := &policy{raw: raw, directives: make(map[string][]string)}
	for _, directive := range strings.Split(raw, ";") {
		fields := strings.Fields(directive)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		// first occurrence wins
		if _, exists := p.directives[name]; exists {
			continue
		}
		p.directives[name] = fields[1:]
	}
	return p
}

// allowsInline reports whether an inline script carrying nonce with the given text may run
func (p *policy) allowsInline(nonce, source string) bool {
	sources, ok := p.directives["script-src-elem"]
	if !ok {
		sources, ok = p.directives["script-src"]
	}
	if !ok {
		sources, ok = p.directives["default-src"]
	}
	if !ok {
		return true
	}

	unsafeInline := false
	hashOrNonce := false
	for _, src := range sources {
		lower := strings.ToLower(src)
		switch {
		case lower == "'unsafe-inline'":
			unsafeInline = true
		case strings.HasPrefix(lower, "'nonce-"):
			hashOrNonce = true
			if nonce != "" && src == "'nonce-"+nonce+"'" {
				return true
			}
		case strings.HasPrefix(lower, "'sha256-"), strings.HasPrefix(lower, "'sha384-"), strings.HasPrefix(lower, "'sha512-"):
			hashOrNonce = true
			if src == scriptHash(lower[1:7], source) {
				return true
			}
		}
	}
	// 'unsafe-inline' is ignored once a nonce or hash is listed
	return unsafeInline && !hashOrNonce
}

// scriptHash formats the hash-source for source, algorithm is sha256, sha384 or sha512
func scriptHash(algorithm, source string) string {
	var sum []byte
	switch algorithm {
	case "sha256":
		h := sha256.Sum256([]byte(source))
		sum = h[:]
	case "sha384":
		h := sha512.Sum384([]byte(source))
		sum = h[:]
	default:
		h := sha512.Sum512([]byte(source))
		sum = h[:]
	}
	return "'" + algorithm + "-" + base64.StdEncoding.EncodeToString(sum) + "'"
}

// metaPolicies returns every <meta http-equiv="Content-Security-Policy"> in doc
func metaPolicies(doc *goquery.Document) []*policy {
	policies := make([]*policy, 0)
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "content-security-policy") {
			return
		}
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			policies = append(policies, parsePolicy(content))
		}
	})
	return policies
}
