package diag

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"
)

const sarifInformationURI = "https://github.com/vellum-tex/vellum"

// WriteSARIF renders warnings and errors as a SARIF 2.1.0 report. Notes are
// omitted. Lines and columns are converted to SARIF's one-based convention.
func WriteSARIF(w io.Writer, entries []Entry, toolVersion string) error {
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("vellum", sarifInformationURI)
	run.Tool.Driver.Version = &toolVersion

	for _, e := range entries {
		if e.Kind == KindNote {
			continue
		}
		result := sarif.NewRuleResult(e.Kind.ruleID())
		result.Level = e.Kind.String()
		result.Message = sarif.NewTextMessage(e.Message)

		if e.Location.Known() {
			region := sarif.NewRegion().
				WithStartLine(int(e.Location.Start.Line) + 1).
				WithStartColumn(int(e.Location.Start.Column) + 1)
			if e.Location.End.Line >= 0 {
				region.WithEndLine(int(e.Location.End.Line) + 1).
					WithEndColumn(int(e.Location.End.Column) + 1)
			}
			pLoc := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithURI(e.Location.File)).
				WithRegion(region)
			result.Locations = []*sarif.Location{sarif.NewLocation().WithPhysicalLocation(pLoc)}
		}
		if len(e.Hints) > 0 {
			props := sarif.NewPropertyBag()
			props.Add("hints", e.Hints)
			result.WithProperties(props)
		}
		run.AddResult(result)
	}

	report.AddRun(run)
	if err := report.Write(w); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}
	_, err := w.Write([]byte("\n"))
	return err
}

func (k Kind) ruleID() string {
	if k == KindError {
		return "compile-error"
	}
	return "compile-warning"
}
