package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/seo-optimizer/dashboard/store"
)

const dateLayout = "2006-01-02 15:04"

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// CompanyGroup is the set of records sharing a company name. An empty
// Company holds the records without one.
type CompanyGroup struct {
	Company string         `json:"company"`
	Records []store.Record `json:"records"`
}

// GroupByCompany partitions records by company in first-seen order
func GroupByCompany(records []store.Record) []CompanyGroup {
	groups := make([]CompanyGroup, 0)
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Company]
		if !ok {
			i = len(groups)
			index[r.Company] = i
			groups = append(groups, CompanyGroup{Company: r.Company})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Filename derives the export file name for a company
func Filename(company string) string {
	if company == "" {
		return "no_company.csv"
	}
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(company, "_")) + ".csv"
}

// CompanyCSV renders the comparison of current and suggested fields for every
// record of one company
func CompanyCSV(company string, records []store.Record) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	name := company
	if name == "" {
		name = "No company"
	}
	rows := [][]string{
		{"Company", name},
		{"Analyses", fmt.Sprint(len(records))},
	}

	for _, r := range records {
		rows = append(rows, []string{})
		rows = append(rows,
			[]string{"URL", r.URL},
			[]string{"Date", r.CreatedAt.Format(dateLayout)},
			[]string{"Element", "Current", "Suggested", "Context"},
			[]string{"Title", r.CurrentTitle, r.SuggestedTitle, r.TitleContext},
			[]string{"Description", r.CurrentDescription, r.SuggestedDescription, r.DescriptionContext},
			[]string{"H1", r.CurrentH1, r.SuggestedH1, r.H1Context},
		)
		rows = append(rows, headingRows("H2", r.CurrentH2s, r.SuggestedH2s, r.H2Context)...)
		rows = append(rows, headingRows("H3", r.CurrentH3s, r.SuggestedH3s, r.H3Context)...)
		rows = append(rows, headingRows("H4", r.CurrentH4s, r.SuggestedH4s, r.H4Context)...)
	}

	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}

// headingRows emits one row per position, padding the shorter side with ""
func headingRows(level string, current, suggested []string, context string) [][]string {
	n := len(current)
	if len(suggested) > n {
		n = len(suggested)
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("%s #%d", level, i+1),
			at(current, i),
			at(suggested, i),
			context,
		})
	}
	return rows
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
