// Package reporter formats verification results for people.
package reporter

import (
	"fmt"
	"math"

	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/core"
)

var labels = map[string]string{
	core.StatusVerified:    "Verified",
	core.StatusFileMissing: "File missing",
	core.StatusMissing:     "Not in database",
}

// Label returns the display label for a raw verification status.
func Label(status string) string {
	if label, ok := labels[status]; ok {
		return label
	}
	return status
}

// Item is a verification result with its label.
type Item struct {
	core.VerificationResult
	Label string `json:"label"`
}

// Report is the presentable form of a bulk verification.
type Report struct {
	Hours         int     `json:"hours"`
	TotalChecked  int     `json:"totalChecked"`
	Verified      int     `json:"verified"`
	Issues        int     `json:"issues"`
	HealthPercent float64 `json:"healthPercent"`
	Summary       string  `json:"summary"`
	Results       []Item  `json:"results"`
}

// Describe labels a single result.
func Describe(result core.VerificationResult) Item {
	return Item{VerificationResult: result, Label: Label(result.Status)}
}

// Summarize builds a report. An empty window is 100% healthy.
func Summarize(bulk *core.BulkVerification) Report {
	report := Report{
		Hours:         bulk.Hours,
		TotalChecked:  bulk.TotalChecked,
		Verified:      bulk.Verified,
		Issues:        bulk.TotalChecked - bulk.Verified,
		HealthPercent: 100,
		Results:       make([]Item, 0, len(bulk.Results)),
	}
	if report.TotalChecked > 0 {
		report.HealthPercent = math.Round(float64(report.Verified)/float64(report.TotalChecked)*1000) / 10
	}
	report.Summary = fmt.Sprintf("%d of %d recently added items verified", report.Verified, report.TotalChecked)

	for _, result := range bulk.Results {
		report.Results = append(report.Results, Describe(result))
	}
	return report
}

// WithIssues returns the items that did not verify.
func (r Report) WithIssues() []Item {
	var items []Item
	for _, item := range r.Results {
		if item.Status != core.StatusVerified {
			items = append(items, item)
		}
	}
	return items
}
