package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"xcs/internal/model"
)

// RunSummary is the end-of-run report printed by the CLI.
type RunSummary struct {
	RunID      string
	Iterations int
	MacroSize  int
	MicroSize  int
	Capacity   int
	Train      EvaluationSummary
	Test       *EvaluationSummary
	Elapsed    time.Duration
	StartedAt  time.Time
	RunDir     string
}

// FormatSummary renders a multi-line, human readable run report.
func FormatSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", s.RunID)
	fmt.Fprintf(&b, "  iterations:   %s\n", humanize.Comma(int64(s.Iterations)))
	fmt.Fprintf(&b, "  population:   %s macro / %s micro", humanize.Comma(int64(s.MacroSize)), humanize.Comma(int64(s.MicroSize)))
	if s.Capacity > 0 {
		fmt.Fprintf(&b, " (%s of N)", formatPercent(float64(s.MicroSize)/float64(s.Capacity)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  train:        accuracy %s, coverage %s over %s instances\n",
		formatPercent(s.Train.Accuracy), formatPercent(s.Train.Coverage), humanize.Comma(int64(s.Train.Instances)))
	if s.Test != nil {
		fmt.Fprintf(&b, "  test:         accuracy %s, coverage %s over %s instances\n",
			formatPercent(s.Test.Accuracy), formatPercent(s.Test.Coverage), humanize.Comma(int64(s.Test.Instances)))
	}
	if s.Elapsed > 0 {
		rate := float64(s.Iterations) / s.Elapsed.Seconds()
		fmt.Fprintf(&b, "  elapsed:      %s (%s iterations/s)\n", s.Elapsed.Round(time.Millisecond), humanize.Commaf(math.Round(rate)))
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "  started:      %s\n", humanize.Time(s.StartedAt))
	}
	if s.RunDir != "" {
		fmt.Fprintf(&b, "  artifacts:    %s\n", s.RunDir)
	}
	return b.String()
}

func formatPercent(v float64) string {
	return humanize.FtoaWithDigits(v*100, 2) + "%"
}

// TrackPoint is one averaged sample of several learn tracks.
type TrackPoint struct {
	Iteration int     `json:"iteration"`
	Accuracy  float64 `json:"accuracy"`
	MicroSize float64 `json:"micro_size"`
	Runs      int     `json:"runs"`
}

// AverageTracks averages the learn tracks of repeated runs position by
// position. Shorter tracks stop contributing once exhausted.
func AverageTracks(tracks [][]model.PopTrack) []TrackPoint {
	longest := 0
	for _, track := range tracks {
		longest = max(longest, len(track))
	}
	points := make([]TrackPoint, 0, longest)
	for i := 0; i < longest; i++ {
		var p TrackPoint
		for _, track := range tracks {
			if i >= len(track) {
				continue
			}
			p.Iteration = track[i].Iteration
			p.Accuracy += track[i].Accuracy
			p.MicroSize += float64(track[i].MicroSize)
			p.Runs++
		}
		p.Accuracy /= float64(p.Runs)
		p.MicroSize /= float64(p.Runs)
		points = append(points, p)
	}
	return points
}
