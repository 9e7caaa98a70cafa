package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/prgate/internal/review"
)

// JSONWriter outputs the full ReviewResult as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, res *review.ReviewResult) error {
	cp := *res
	if cp.Files == nil {
		cp.Files = []review.AnalysisResult{}
	}
	if cp.Feedback.ActionItems == nil {
		cp.Feedback.ActionItems = []review.ActionItem{}
	}
	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
