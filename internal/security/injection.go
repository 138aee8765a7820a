package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrPromptInjection = errors.New("potential prompt injection detected")

type injectionRule struct {
	name string
	re   *regexp.Regexp
}

// phrase compiles a case-insensitive literal that tolerates any run of
// whitespace between its words.
func phrase(name, words string) injectionRule {
	parts := strings.Fields(words)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return injectionRule{name: name, re: regexp.MustCompile(`(?i)` + strings.Join(parts, `\s+`))}
}

func pattern(name, expr string) injectionRule {
	return injectionRule{name: name, re: regexp.MustCompile(`(?i)` + expr)}
}

var defaultInjectionRules = []injectionRule{
	pattern("instruction-override", `(ignore|disregard|forget)\s+(all\s+)?(the\s+)?(previous|prior|above)(\s+(instructions?|prompts?|rules?|directives?|context))?`),
	pattern("new-instructions", `your\s+new\s+(instructions?|task|role)|new\s+directive`),
	pattern("role-play", `you\s+are\s+now\b|(pretend|act|simulate)\s+(that\s+|as\s+if\s+)?you\s+are`),
	pattern("filter-bypass", `(override|bypass)\s+(all\s+|your\s+)?(rules?|restrictions?|filters?|instructions?)|system\s+override`),
	pattern("system-marker", `system:\s*you\s+must|<\|[^|]*\|>|\[system\]|###\s*(instruction|system)`),
	phrase("jailbreak", "jailbreak"),
	phrase("developer-mode", "developer mode"),
	phrase("instruction-override-tr", "önceki talimatları"),
	phrase("instruction-override-tr", "talimatları yok say"),
}

// PromptInjectionDetector flags text that tries to steer the model away
// from the leaflet prompt it is embedded in.
type PromptInjectionDetector struct {
	rules []injectionRule
}

func NewPromptInjectionDetector() *PromptInjectionDetector {
	return &PromptInjectionDetector{rules: defaultInjectionRules}
}

// Match returns the name of the first rule the input trips, or "".
func (d *PromptInjectionDetector) Match(input string) string {
	for _, r := range d.rules {
		if r.re.MatchString(input) {
			return r.name
		}
	}
	return ""
}

func (d *PromptInjectionDetector) Validate(input string) error {
	if rule := d.Match(input); rule != "" {
		return fmt.Errorf("%w (%s)", ErrPromptInjection, rule)
	}
	return nil
}
