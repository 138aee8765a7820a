package security

import (
	"regexp"
	"sort"
)

// SecretMatch is one credential found in a string
type SecretMatch struct {
	Type  string
	Start int
	End   int
}

type secretRule struct {
	kind string
	re   *regexp.Regexp
	mask string
}

func secret(kind, expr, mask string) secretRule {
	return secretRule{kind: kind, re: regexp.MustCompile(expr), mask: mask}
}

// Order matters for Redact: the URL parameter rule runs after the Google
// key rule so a key embedded in a query string is masked once.
var defaultSecretRules = []secretRule{
	secret("google-api-key", `AIza[0-9A-Za-z\-_]{35}`, "AIza****"),
	secret("url-credential", `([?&](?:key|api_key|token)=)[^&\s"']+`, "${1}****"),
	secret("telegram-token", `[0-9]{8,10}:[a-zA-Z0-9_-]{35}`, "****:****"),
	secret("discord-token", `[MN][a-zA-Z\d]{23}\.[\w-]{6}\.[\w-]{27}`, "DISCORD_TOKEN****"),
	secret("jwt", `eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+`, "eyJ****"),
	secret("bearer", `(?i)(bearer\s+)[a-z0-9\-_.=]{8,}`, "${1}****"),
}

// SecretScanner finds and masks the credentials medreminder handles: the
// leaflet API key, chat bot tokens and API session tokens.
type SecretScanner struct {
	rules []secretRule
}

func NewSecretScanner() *SecretScanner {
	return &SecretScanner{rules: defaultSecretRules}
}

// Scan reports every match ordered by position.
func (s *SecretScanner) Scan(input string) []SecretMatch {
	var matches []SecretMatch
	for _, r := range s.rules {
		for _, loc := range r.re.FindAllStringIndex(input, -1) {
			matches = append(matches, SecretMatch{Type: r.kind, Start: loc[0], End: loc[1]})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

func (s *SecretScanner) HasSecrets(input string) bool {
	for _, r := range s.rules {
		if r.re.MatchString(input) {
			return true
		}
	}
	return false
}

func (s *SecretScanner) Redact(input string) string {
	for _, r := range s.rules {
		input = r.re.ReplaceAllString(input, r.mask)
	}
	return input
}
