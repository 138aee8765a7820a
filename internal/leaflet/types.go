// Package leaflet produces patient leaflet summaries from a generative text
// endpoint and carves the free-form answer into a fixed section layout.
package leaflet

import "fmt"

// Placeholder fills any section the answer did not provide
const Placeholder = "Information not available"

// ConnectivityFallback is the intended use text served when generation fails
const ConnectivityFallback = "Information not available. Please check your internet connection and try again."

// Profile defaults used when no profile has been saved
const (
	DefaultAge    = 25
	DefaultHeight = 170
	DefaultWeight = 70
)

// Top level section labels
const (
	IntendedUseLabel       = "Intended use"
	HowToUseLabel          = "How to use"
	NotRecommendedForLabel = "Not recommended for"
)

// Subsection labels required in HowToUse, in prompt order
var Subsections = []string{
	"Initial dose",
	"Administration",
	"Dosage adjustment",
	"Treatment duration",
	"Possible side effects",
}

// turkishSubsections are accepted as equivalents of Subsections, same order
var turkishSubsections = []string{
	"Başlangıç dozu",
	"Uygulama",
	"Doz ayarlaması",
	"Tedavi süresi",
	"Olası yan etkiler",
}

// LeafletData is the structured summary shown for a medicine
type LeafletData struct {
	Name              string   `json:"name" yaml:"name"`
	Dosage            string   `json:"dosage" yaml:"dosage"`
	IntendedUse       string   `json:"intendedUse" yaml:"intended_use"`
	HowToUse          []string `json:"howToUse" yaml:"how_to_use"`
	NotRecommendedFor string   `json:"notRecommendedFor" yaml:"not_recommended_for"`
}

// Profile personalises the prompt. Zero fields take the defaults.
type Profile struct {
	Age    float64 `json:"age"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

func (p *Profile) withDefaults() Profile {
	out := Profile{Age: DefaultAge, Height: DefaultHeight, Weight: DefaultWeight}
	if p == nil {
		return out
	}
	if p.Age > 0 {
		out.Age = p.Age
	}
	if p.Height > 0 {
		out.Height = p.Height
	}
	if p.Weight > 0 {
		out.Weight = p.Weight
	}
	return out
}

// Fallback is the complete static leaflet served when generation fails.
func Fallback(name, dosage string) LeafletData {
	howTo := make([]string, len(Subsections))
	for i, label := range Subsections {
		howTo[i] = placeholderEntry(label)
	}
	return LeafletData{
		Name:              name,
		Dosage:            dosage,
		IntendedUse:       ConnectivityFallback,
		HowToUse:          howTo,
		NotRecommendedFor: Placeholder,
	}
}

func placeholderEntry(label string) string {
	return fmt.Sprintf("%s: %s", label, Placeholder)
}
