package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Render writes the per-probe tables, the summary and the advice to w.
func Render(w io.Writer, rep Report) {
	sections := []Section{rep.Primary}
	if rep.Secondary != nil {
		sections = append(sections, *rep.Secondary)
	}

	for _, s := range sections {
		fmt.Fprintf(w, "\n== %s ==\n", s.Run.Label)
		renderProbes(w, s)
	}

	fmt.Fprintln(w, "\n== Summary ==")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Succeeded", "With content", "Content rate", "Avg latency", "Avg length"})
	table.SetAutoFormatHeaders(false)
	for _, s := range sections {
		st := s.Stats
		table.Append([]string{
			s.Run.Label,
			fmt.Sprintf("%d/%d", st.Succeeded, st.Total),
			fmt.Sprintf("%d/%d", st.WithContent, st.Total),
			percent(st.ContentRate),
			seconds(st.AvgLatency, st.Succeeded),
			chars(st.AvgContentLength, st.WithContent),
		})
	}
	table.Render()

	if c := rep.Comparison; c != nil {
		fmt.Fprintf(w, "\nComparison: %s (%s)\n", c.Verdict, c.Note)
		if c.LatencyComparable {
			fmt.Fprintf(w, "Latency: %s %.2fs vs %s %.2fs (%+.2fs)\n",
				rep.Primary.Run.Label, rep.Primary.Stats.AvgLatency,
				rep.Secondary.Run.Label, rep.Secondary.Stats.AvgLatency,
				c.LatencyDelta)
		}
	}

	fmt.Fprintf(w, "\nRecommendation: %s\n", rep.Recommendation)
	for _, a := range rep.Advice {
		fmt.Fprintf(w, "  - %s\n", a)
	}
}

func renderProbes(w io.Writer, s Section) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Probe", "Status", "Latency", "Tokens (in/out/reasoning)", "Length", "Error"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, r := range s.Run.Records {
		status := "failed"
		switch {
		case r.HasContent:
			status = "content"
		case r.Succeeded:
			status = "empty"
		}
		latency, tokens := "-", "-"
		if r.Succeeded {
			latency = fmt.Sprintf("%.2fs", r.LatencySeconds)
			tokens = fmt.Sprintf("%d/%d/%d", r.Tokens.Prompt, r.Tokens.Completion, r.Tokens.Reasoning)
		}
		table.Append([]string{r.ProbeName, status, latency, tokens, strconv.Itoa(r.ContentLength), r.Error})
	}
	table.Render()
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", 100*f)
}

func seconds(avg float64, n int) string {
	if n == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2fs", avg)
}

func chars(avg float64, n int) string {
	if n == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f chars", avg)
}
