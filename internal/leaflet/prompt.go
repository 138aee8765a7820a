package leaflet

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildPrompt asks for a plain text summary using the exact section and
// subsection labels Normalize looks for.
func BuildPrompt(name, dosage string, profile *Profile) string {
	p := profile.withDefaults()

	medicine := strings.TrimSpace(name + " " + dosage)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the patient information leaflet for the medicine %s.\n", medicine)
	fmt.Fprintf(&sb, "The patient is %s years old, %s cm tall and weighs %s kg. Tailor dosing notes to this patient.\n\n",
		num(p.Age), num(p.Height), num(p.Weight))

	sb.WriteString("Answer in exactly three sections, each starting on its own line with its label:\n")
	fmt.Fprintf(&sb, "%s: one short paragraph on what the medicine treats.\n", IntendedUseLabel)
	fmt.Fprintf(&sb, "%s: one line for each of the following, starting with the label:\n", HowToUseLabel)
	for _, label := range Subsections {
		fmt.Fprintf(&sb, "%s: ...\n", label)
	}
	fmt.Fprintf(&sb, "%s: one short paragraph on who should not take it.\n\n", NotRecommendedForLabel)

	sb.WriteString("Write plain text only. Do not use bullet points, numbering, bold, headings or any other markdown.")

	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
