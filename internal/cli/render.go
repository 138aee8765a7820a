package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/medreminder/internal/leaflet"
	"github.com/gmsas95/medreminder/internal/medicine"
	"github.com/gmsas95/medreminder/internal/prefs"
	"github.com/gmsas95/medreminder/internal/reminder"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// medicineTable renders the stored medicines with their reminder count.
// Custom times are starred; turkish switches the day labels.
func medicineTable(meds []medicine.Medicine, entries []reminder.Scheduled, turkish bool) string {
	if len(meds) == 0 {
		return mutedStyle.Render("No medicines yet. Add one through the API.")
	}

	counts := make(map[string]int, len(meds))
	for _, e := range entries {
		counts[e.Content.Data.MedicineID]++
	}

	anyCustom := false
	rows := make([][]string, 0, len(meds))
	for _, m := range meds {
		custom := make(map[string]bool)
		for _, t := range m.Schedule.CustomTimes() {
			custom[t] = true
			anyCustom = true
		}
		times := medicine.SortTimes(m.Schedule.Times)
		for i, t := range times {
			if custom[t] {
				times[i] = t + "*"
			}
		}

		days := append([]string(nil), m.Schedule.Days...)
		if turkish {
			for i, d := range days {
				days[i] = medicine.TurkishDay(d)
			}
		}

		perWeek := len(medicine.ExpandDays(m.Schedule.Days)) * len(m.Schedule.Times)
		rows = append(rows, []string{
			m.Name,
			m.Dosage,
			strings.Join(days, ", "),
			strings.Join(times, ", "),
			fmt.Sprintf("%d", perWeek),
			fmt.Sprintf("%d", counts[m.ID]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("NAME", "DOSAGE", "DAYS", "TIMES", "PER WEEK", "REMINDERS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	out := titleStyle.Render("💊 Medicines") + "\n" + t.Render()
	if anyCustom {
		out += "\n" + mutedStyle.Render("* custom time")
	}
	return out
}

// leafletMarkdown lays a summary out as a markdown document
func leafletMarkdown(d leaflet.LeafletData) string {
	var sb strings.Builder

	title := strings.TrimSpace(d.Name + " " + d.Dosage)
	fmt.Fprintf(&sb, "# %s\n\n", title)

	fmt.Fprintf(&sb, "## %s\n\n%s\n\n", leaflet.IntendedUseLabel, d.IntendedUse)

	fmt.Fprintf(&sb, "## %s\n\n", leaflet.HowToUseLabel)
	for _, entry := range d.HowToUse {
		fmt.Fprintf(&sb, "- %s\n", entry)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## %s\n\n%s\n", leaflet.NotRecommendedForLabel, d.NotRecommendedFor)

	return sb.String()
}

// renderLeaflet renders markdown for a terminal of the given width
func renderLeaflet(d leaflet.LeafletData, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render(leafletMarkdown(d))
}

// Export is a snapshot of everything the tracker stores
type Export struct {
	ExportedAt    string               `json:"exportedAt" yaml:"exported_at"`
	Language      prefs.Language       `json:"language" yaml:"language"`
	Profile       *prefs.Profile       `json:"profile,omitempty" yaml:"profile,omitempty"`
	Medicines     []medicine.Medicine  `json:"medicines" yaml:"medicines"`
	Notifications []ExportNotification `json:"notifications" yaml:"notifications"`
}

type ExportNotification struct {
	ID            string `json:"id" yaml:"id"`
	MedicineID    string `json:"medicineId" yaml:"medicine_id"`
	Title         string `json:"title" yaml:"title"`
	Trigger       string `json:"trigger" yaml:"trigger"`
	OffsetMinutes int    `json:"offsetMinutes" yaml:"offset_minutes"`
	IsCustomTime  bool   `json:"isCustomTime" yaml:"is_custom_time"`
}

func newExport(meds []medicine.Medicine, entries []reminder.Scheduled, profile *prefs.Profile, lang prefs.Language, now time.Time) Export {
	if meds == nil {
		meds = []medicine.Medicine{}
	}
	out := Export{
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Language:      lang,
		Profile:       profile,
		Medicines:     meds,
		Notifications: make([]ExportNotification, 0, len(entries)),
	}
	for _, e := range entries {
		out.Notifications = append(out.Notifications, ExportNotification{
			ID:            e.ID,
			MedicineID:    e.Content.Data.MedicineID,
			Title:         e.Content.Title,
			Trigger:       e.Trigger.String(),
			OffsetMinutes: e.Content.Data.OffsetMinutes,
			IsCustomTime:  e.Content.Data.IsCustomTime,
		})
	}
	return out
}

func writeExport(w io.Writer, e Export, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func channelStatus(enabled bool) string {
	if enabled {
		return "✅ enabled"
	}
	return "❌ disabled"
}

func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
