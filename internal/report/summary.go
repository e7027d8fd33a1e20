// Package report turns result records into summary statistics, an optional
// comparison between two runs, and a recommendation.
package report

import (
	"fmt"
	"math"

	"github.com/daryltucker/chatprobe/internal/model"
)

// Recommendation classifies how many probes of the primary run returned
// content.
type Recommendation string

const (
	AllContent Recommendation = "ALL_CONTENT"
	Partial    Recommendation = "PARTIAL"
	None       Recommendation = "NONE"
)

// Verdict is the qualitative outcome of comparing two runs.
type Verdict string

const (
	Improved  Verdict = "improved"
	Regressed Verdict = "regressed"
	Unchanged Verdict = "unchanged"
)

// Run is a labelled record sequence as produced by engine.Run.
type Run struct {
	Label   string
	Records []model.ResultRecord
}

// Stats are aggregate figures over one run. Averages are zero when no
// record qualifies.
type Stats struct {
	Total            int
	Succeeded        int
	WithContent      int
	SuccessRate      float64
	ContentRate      float64
	AvgLatency       float64
	AvgContentLength float64
}

// Section pairs a run with its statistics.
type Section struct {
	Run   Run
	Stats Stats
}

// Comparison relates the secondary run to the primary one.
type Comparison struct {
	Verdict          Verdict
	Note             string
	ContentRateDelta float64
	// LatencyDelta is secondary minus primary average latency, in seconds.
	// Only meaningful when LatencyComparable is set.
	LatencyDelta      float64
	LatencyComparable bool
}

// Report is the full summary of one or two runs.
type Report struct {
	Primary        Section
	Secondary      *Section
	Comparison     *Comparison
	Recommendation Recommendation
	// SecondaryRecommendation is set when a secondary run exists.
	SecondaryRecommendation Recommendation
	Advice                  []string
}

// Compute derives Stats from records.
func Compute(records []model.ResultRecord) Stats {
	s := Stats{Total: len(records)}

	var latency float64
	var length int
	for _, r := range records {
		if r.Succeeded {
			s.Succeeded++
			latency += r.LatencySeconds
		}
		if r.HasContent {
			s.WithContent++
			length += r.ContentLength
		}
	}

	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total)
		s.ContentRate = float64(s.WithContent) / float64(s.Total)
	}
	if s.Succeeded > 0 {
		s.AvgLatency = latency / float64(s.Succeeded)
	}
	if s.WithContent > 0 {
		s.AvgContentLength = float64(length) / float64(s.WithContent)
	}
	return s
}

// Classify maps stats to a Recommendation.
func Classify(s Stats) Recommendation {
	switch {
	case s.Total > 0 && s.WithContent == s.Total:
		return AllContent
	case s.WithContent > 0:
		return Partial
	default:
		return None
	}
}

// Compare relates two runs by their content rate, then latency.
func Compare(primary, secondary Stats) Comparison {
	c := Comparison{
		ContentRateDelta: secondary.ContentRate - primary.ContentRate,
	}
	switch {
	case c.ContentRateDelta > 0:
		c.Verdict = Improved
	case c.ContentRateDelta < 0:
		c.Verdict = Regressed
	default:
		c.Verdict = Unchanged
	}

	switch {
	case primary.WithContent == 0 && secondary.WithContent > 0:
		c.Note = "improved from empty to non-empty"
	case primary.WithContent > 0 && secondary.WithContent == 0:
		c.Note = "regressed from non-empty to empty"
	default:
		c.Note = fmt.Sprintf("content rate %s by %.1f points", c.Verdict, 100*math.Abs(c.ContentRateDelta))
		if c.Verdict == Unchanged {
			c.Note = "content rate unchanged"
		}
	}

	if primary.WithContent > 0 && secondary.WithContent > 0 {
		c.LatencyComparable = true
		c.LatencyDelta = secondary.AvgLatency - primary.AvgLatency
	}
	return c
}

// Summarize builds the report for primary and, if non-nil, a comparison run.
func Summarize(primary Run, secondary *Run) Report {
	rep := Report{
		Primary: Section{Run: primary, Stats: Compute(primary.Records)},
	}
	rep.Recommendation = Classify(rep.Primary.Stats)

	if secondary != nil {
		sec := Section{Run: *secondary, Stats: Compute(secondary.Records)}
		cmp := Compare(rep.Primary.Stats, sec.Stats)
		rep.Secondary = &sec
		rep.Comparison = &cmp
		rep.SecondaryRecommendation = Classify(sec.Stats)
	}

	rep.Advice = advise(rep)
	return rep
}

func advise(rep Report) []string {
	primary := rep.Primary.Run.Label
	switch rep.Recommendation {
	case AllContent:
		advice := []string{fmt.Sprintf("%s returned content for every probe; recommended", primary)}
		switch {
		case rep.Secondary == nil:
			advice = append(advice, "run again with --compare-stream to check incremental mode")
		case rep.SecondaryRecommendation == AllContent:
			advice = append(advice, fmt.Sprintf("%s also returned content for every probe", rep.Secondary.Run.Label))
		default:
			advice = append(advice, fmt.Sprintf("%s has problems; prefer %s", rep.Secondary.Run.Label, primary))
		}
		return advice
	}

	var advice []string
	if rep.Recommendation == Partial {
		advice = append(advice, "some probes returned content; check the failing probes")
	} else {
		advice = append(advice, "no probe returned content; check the model configuration and API settings")
	}
	if rep.Secondary != nil && rep.SecondaryRecommendation == AllContent {
		advice = append(advice, fmt.Sprintf("%s returned content for every probe; prefer it", rep.Secondary.Run.Label))
	}
	return advice
}
