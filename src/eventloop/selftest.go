package eventloop

import (
	"context"
	"log"
	"time"

	"github.com/hashicorp/go-multierror"

	"notify-shell/src/dialog"
	"notify-shell/src/host"
	"notify-shell/src/messages"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
	"notify-shell/src/toast"
)

const selfTestDuration = 3 * time.Second

// SelfTestStep is one check run by the test op.
type SelfTestStep struct {
	Name   string         `json:"name"`
	OK     bool           `json:"ok"`
	Handle surface.Handle `json:"handle,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// SelfTestReport is the outcome of the test op. Passed is false when any
// step failed; the op itself only errors when it could not run at all.
type SelfTestReport struct {
	Theme  theme.Summary  `json:"theme"`
	Steps  []SelfTestStep `json:"steps"`
	Passed bool           `json:"passed"`
}

var selfTestSamples = []struct {
	typ     theme.Type
	message string
}{
	{theme.Info, "Test notification - this will auto-close in 3 seconds"},
	{theme.Success, "Success test notification"},
	{theme.Warning, "Warning test notification"},
}

// selfTest resolves the theme and, with ShowAll, shows one sample toast per
// type. With Wait it returns once every sample has closed.
func selfTest(ctx context.Context, h *host.Host, n *toast.Notifier, req messages.Request) (SelfTestReport, error) {
	report := SelfTestReport{Steps: []SelfTestStep{}}
	p, err := requestPalette(h, req)
	if err != nil {
		return report, err
	}
	report.Theme = p.Summarize()
	report.Steps = append(report.Steps, SelfTestStep{Name: "theme " + string(p.Mode), OK: true})

	var shownDialogs []*dialog.Dialog
	if req.ShowAll {
		for _, sample := range selfTestSamples {
			step := SelfTestStep{Name: "toast " + string(sample.typ)}
			d, err := n.Show(ctx, toast.Request{
				Title:    string(sample.typ),
				Message:  sample.message,
				Type:     sample.typ,
				Duration: selfTestDuration,
				Accent:   req.Accent,
			})
			if err != nil {
				step.Err = err.Error()
			} else {
				step.OK = true
				step.Handle = d.Handle()
				shownDialogs = append(shownDialogs, d)
			}
			report.Steps = append(report.Steps, step)
		}
	}

	if req.Wait {
		var errs *multierror.Error
		for _, d := range shownDialogs {
			if _, err := d.Wait(ctx); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if err := errs.ErrorOrNil(); err != nil {
			return report, err
		}
	}

	report.Passed = true
	for _, s := range report.Steps {
		if !s.OK {
			report.Passed = false
		}
	}
	log.Printf("Eventloop: self-test %d step(s), passed=%v", len(report.Steps), report.Passed)
	return report, nil
}
