package leaflet

import (
	"strings"
	"unicode"
)

type section int

const (
	sectionNone section = iota
	sectionIntendedUse
	sectionHowToUse
	sectionNotRecommendedFor
)

// headerVariants are matched case-insensitively as substrings. Within a
// section the colon form is tried before the bare form.
var headerVariants = []struct {
	section  section
	variants []string
}{
	{sectionIntendedUse, []string{"intended use:", "intended use", "kullanım amacı:", "kullanım amacı"}},
	{sectionHowToUse, []string{"how to use:", "how to use", "nasıl kullanılır:", "nasıl kullanılır", "kullanım şekli:", "kullanım şekli"}},
	{sectionNotRecommendedFor, []string{"not recommended for:", "not recommended for", "kimler kullanmamalı:", "kimler kullanmamalı", "önerilmeyen durumlar:", "önerilmeyen durumlar"}},
}

var fallbackKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionNotRecommendedFor, []string{"not recommended", "contraindicated", "should not", "önerilmez", "kullanılmamalı", "kontrendike"}},
	{sectionHowToUse, []string{"dose", "dosage", "administration", "side effect", "doz", "uygulama", "yan etki"}},
	{sectionIntendedUse, []string{"use", "kullanım", "treatment", "tedavi"}},
}

const markerChars = "*-•#\"'`“”‘’"

var doubleMarkdown = []string{"**", "* *", "##", "__", "--"}

type parser struct {
	current     section
	seen        map[section]bool
	intendedUse []string
	howToUse    []string
	notRecFor   []string
}

// Normalize carves generated text into a LeafletData. It never fails:
// anything it cannot find is filled with Placeholder.
func Normalize(name, dosage, text string) LeafletData {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	p := &parser{seen: make(map[section]bool)}
	for _, line := range lines {
		p.consume(line)
	}

	if len(p.seen) == 0 {
		p.keywordFallback(lines)
	}

	howTo := appendMissingSubsections(p.howToUse)

	data := LeafletData{
		Name:              cleanup(name),
		Dosage:            cleanup(dosage),
		IntendedUse:       cleanup(strings.Join(p.intendedUse, " ")),
		NotRecommendedFor: cleanup(strings.Join(p.notRecFor, " ")),
		HowToUse:          make([]string, 0, len(howTo)),
	}
	for _, entry := range howTo {
		if e := cleanup(entry); e != "" {
			data.HowToUse = append(data.HowToUse, e)
		}
	}

	if data.IntendedUse == "" {
		data.IntendedUse = Placeholder
	}
	if data.NotRecommendedFor == "" {
		data.NotRecommendedFor = Placeholder
	}

	return data
}

func (p *parser) consume(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	if next, rest, ok := p.matchHeader(line); ok {
		p.current = next
		p.seen[next] = true
		line = strings.TrimSpace(strings.TrimLeft(rest, ": "))
		if line == "" {
			return
		}
	}

	switch p.current {
	case sectionIntendedUse:
		p.intendedUse = appendParagraph(p.intendedUse, line)
	case sectionNotRecommendedFor:
		p.notRecFor = appendParagraph(p.notRecFor, line)
	case sectionHowToUse:
		p.addHowToLine(line)
	}
}

// matchHeader finds the first top level label in line that has not been
// used yet and returns the text after it.
func (p *parser) matchHeader(line string) (section, string, bool) {
	for _, h := range headerVariants {
		if p.seen[h.section] {
			continue
		}
		for _, v := range h.variants {
			if end, ok := foldIndex(line, v); ok {
				return h.section, line[end:], true
			}
		}
	}
	return sectionNone, "", false
}

// foldRune lowers r and collapses the four Turkish i forms to 'i' so
// headers match in either language and either case.
func foldRune(r rune) rune {
	switch r {
	case 'I', 'İ', 'ı':
		return 'i'
	}
	return unicode.ToLower(r)
}

func fold(s string) string {
	return strings.Map(foldRune, s)
}

// foldIndex finds needle in s ignoring case and returns the byte offset
// in s just past the match.
func foldIndex(s, needle string) (int, bool) {
	runes := make([]rune, 0, len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		runes = append(runes, foldRune(r))
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(s))

	want := []rune(fold(needle))
	for i := 0; i+len(want) <= len(runes); i++ {
		match := true
		for j := range want {
			if runes[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return offsets[i+len(want)], true
		}
	}
	return 0, false
}

func (p *parser) addHowToLine(line string) {
	switch {
	case opensSubsection(line):
		p.howToUse = append(p.howToUse, line)
	case hasBullet(line):
		p.howToUse = append(p.howToUse, stripBullet(line))
	case strings.Contains(line, ":"):
		p.howToUse = append(p.howToUse, line)
	case len(p.howToUse) == 0:
		p.howToUse = append(p.howToUse, line)
	default:
		last := len(p.howToUse) - 1
		p.howToUse[last] = p.howToUse[last] + " " + line
	}
}

func (p *parser) keywordFallback(lines []string) {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		folded := fold(line)

	match:
		for _, k := range fallbackKeywords {
			for _, kw := range k.keywords {
				if !strings.Contains(folded, fold(kw)) {
					continue
				}
				switch k.section {
				case sectionIntendedUse:
					p.intendedUse = appendParagraph(p.intendedUse, line)
				case sectionNotRecommendedFor:
					p.notRecFor = appendParagraph(p.notRecFor, line)
				case sectionHowToUse:
					p.howToUse = append(p.howToUse, stripBullet(line))
				}
				break match
			}
		}
	}
}

func appendParagraph(parts []string, line string) []string {
	if s := stripBullet(line); s != "" {
		return append(parts, s)
	}
	return parts
}

func hasBullet(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "*-• "))
}

// subsectionIndex returns which required subsection s starts with, or -1.
func subsectionIndex(s string) int {
	folded := fold(strings.TrimSpace(strings.TrimLeft(s, markerChars+" ")))
	for i := range Subsections {
		if strings.HasPrefix(folded, fold(Subsections[i])) ||
			strings.HasPrefix(folded, fold(turkishSubsections[i])) {
			return i
		}
	}
	return -1
}

func opensSubsection(line string) bool {
	return subsectionIndex(line) >= 0
}

// appendMissingSubsections adds a placeholder entry for every required
// subsection no entry opens with. Found entries keep their order.
func appendMissingSubsections(entries []string) []string {
	present := make([]bool, len(Subsections))
	for _, e := range entries {
		if i := subsectionIndex(e); i >= 0 {
			present[i] = true
		}
	}

	out := append([]string(nil), entries...)
	for i, ok := range present {
		if !ok {
			out = append(out, placeholderEntry(Subsections[i]))
		}
	}
	return out
}

// cleanup strips one leading and one trailing run of markdown markers,
// drops doubled markdown sequences and trims whitespace.
func cleanup(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, markerChars)
	s = strings.TrimRight(s, markerChars)
	for _, seq := range doubleMarkdown {
		s = strings.ReplaceAll(s, seq, "")
	}
	return strings.TrimSpace(s)
}
