package report

import (
	"fmt"
	"strings"
)

// Markdown renders r as GitHub-flavoured Markdown.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", inline(r.Title), inline(r.Subtitle))

	b.WriteString("| Category | Score | Total Score | Percentage |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| %s | %d | %d | %d%% |\n", cell(row.Category), row.Marks, row.Max, row.Percent)
	}
	b.WriteString("\n")

	if r.HRPerformance != "" {
		fmt.Fprintf(&b, "## Performance in HR Interview\n\n%s\n\n", inline(r.HRPerformance))
	}
	for _, s := range r.Sections {
		if len(s.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", inline(s.Title))
		for i, item := range s.Items {
			fmt.Fprintf(&b, "%d. %s\n", i+1, inline(item))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// inline keeps model text on one line so it cannot open new blocks.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(inline(s), "|", `\|`)
}
