package project

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Ministry is one dashboard tile. Budget fields come from the static
// baseline; the webhook only supplies project counts.
type Ministry struct {
	Name         string `json:"name" yaml:"name"`
	ProjectCount int    `json:"projectCount" yaml:"projectCount"`
	TotalBudget  int64  `json:"totalBudget" yaml:"totalBudget"`
	SpentBudget  int64  `json:"spentBudget" yaml:"spentBudget"`
	PercentSpent int    `json:"percentSpent" yaml:"percentSpent"`
	// Placeholder marks ministries the baseline does not know about.
	Placeholder bool `json:"placeholder,omitempty" yaml:"-"`
}

// NewPlaceholder returns a tile for a ministry missing from the baseline.
func NewPlaceholder(name string, count int) Ministry {
	return Ministry{Name: name, ProjectCount: count, Placeholder: true}
}

// View is the display form of a Ministry.
type View struct {
	Name         string `json:"name"`
	ProjectCount int    `json:"projectCount"`
	TotalBudget  string `json:"totalBudget"`
	SpentBudget  string `json:"spentBudget"`
	PercentSpent string `json:"percentSpent"`
	Placeholder  bool   `json:"placeholder,omitempty"`
}

// View formats budgets as dollar amounts, or N/A for placeholders.
func (m Ministry) View() View {
	if m.Placeholder {
		return View{
			Name:         m.Name,
			ProjectCount: m.ProjectCount,
			TotalBudget:  "N/A",
			SpentBudget:  "N/A",
			PercentSpent: "N/A",
			Placeholder:  true,
		}
	}
	return View{
		Name:         m.Name,
		ProjectCount: m.ProjectCount,
		TotalBudget:  formatDollars(m.TotalBudget),
		SpentBudget:  formatDollars(m.SpentBudget),
		PercentSpent: fmt.Sprintf("%d%%", m.PercentSpent),
	}
}

func formatDollars(amount int64) string {
	if amount < 0 {
		return "-$" + humanize.Comma(-amount)
	}
	return "$" + humanize.Comma(amount)
}

// Seed provides the 2024-25 baseline used when the webhook has nothing to add.
func Seed() []Ministry {
	return []Ministry{
		{Name: "Advanced Education", ProjectCount: 10, TotalBudget: 3523203, SpentBudget: 1438456, PercentSpent: 40},
		{Name: "Affordability and Utilities", ProjectCount: 2, TotalBudget: 2022382, SpentBudget: 819025, PercentSpent: 40},
		{Name: "Agriculture and Irrigation", ProjectCount: 3, TotalBudget: 287853, SpentBudget: 159385, PercentSpent: 55},
		{Name: "Arts, Culture and Status of Women", ProjectCount: 3, TotalBudget: 282587, SpentBudget: 173275, PercentSpent: 61},
		{Name: "Children and Family Services", ProjectCount: 3, TotalBudget: 6352834, SpentBudget: 4825945, PercentSpent: 76},
		{Name: "Communications and Public Engagement", ProjectCount: 0, TotalBudget: 0, SpentBudget: 0, PercentSpent: 0},
		{Name: "Education", ProjectCount: 6, TotalBudget: 2745348, SpentBudget: 1721897, PercentSpent: 63},
		{Name: "Energy and Minerals", ProjectCount: 6, TotalBudget: 2860774, SpentBudget: 1087022, PercentSpent: 38},
		{Name: "Environment and Protected Areas", ProjectCount: 11, TotalBudget: 12418407, SpentBudget: 5221174, PercentSpent: 42},
		{Name: "Executive Council", ProjectCount: 1, TotalBudget: 1173835, SpentBudget: 1080456, PercentSpent: 92},
		{Name: "Forestry and Parks", ProjectCount: 12, TotalBudget: 3246942, SpentBudget: 2126426, PercentSpent: 65},
		{Name: "Health", ProjectCount: 1, TotalBudget: 182239, SpentBudget: 128035, PercentSpent: 70},
	}
}

// SeedFiscalYear labels the built-in baseline.
const SeedFiscalYear = "2024-25"
