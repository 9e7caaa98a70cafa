package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/prgate/internal/review"
)

// SARIFWriter outputs issues in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, res *review.ReviewResult) error {
	data, err := json.MarshalIndent(buildSARIF(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(res *review.ReviewResult) sarifLog {
	name := res.Tool
	if name == "" {
		name = "prgate"
	}
	rules := []sarifRule{}
	seen := make(map[string]bool)
	results := []sarifResult{}

	for _, is := range flatten(res) {
		ruleID := sarifRuleID(is.Issue)
		if !seen[ruleID] {
			seen[ruleID] = true
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             is.RuleID,
				ShortDescription: sarifMessage{Text: is.Message},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(is.Severity)},
				Properties:       sarifRuleProperties{Tags: []string{is.Category, is.Analyzer}},
			})
		}

		loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: is.Path}}
		if is.Line > 0 {
			loc.Region = &sarifRegion{StartLine: is.Line}
		}
		result := sarifResult{
			RuleID:    ruleID,
			Level:     severityToLevel(is.Severity),
			Message:   sarifMessage{Text: is.Message},
			Locations: []sarifLocation{{PhysicalLocation: loc}},
		}
		if is.Suggestion != "" {
			result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: is.Suggestion}})
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           name,
						Version:        res.Version,
						InformationURI: "https://github.com/dshills/prgate",
						Rules:          rules,
					},
				},
				Results: results,
				Properties: map[string]any{
					"score":          res.Score.Overall,
					"grade":          res.Score.Grade,
					"recommendation": res.Feedback.Recommendation,
				},
			},
		},
	}
}

// severityToLevel maps issue severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "error"
	case review.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// sarifRuleID namespaces an analyzer rule by category.
func sarifRuleID(is review.Issue) string {
	rule := is.RuleID
	if rule == "" {
		rule = "unknown"
	}
	return fmt.Sprintf("prgate/%s/%s", is.Category, rule)
}
