package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/verdict/internal/engine"
	"github.com/felixgeelhaar/verdict/internal/health"
	"github.com/felixgeelhaar/verdict/internal/history"
	"github.com/felixgeelhaar/verdict/internal/runner"
	"github.com/felixgeelhaar/verdict/internal/ux"
)

const timeLayout = "2006-01-02 15:04:05"

// runView is the output of verdict run.
type runView struct {
	Reports []runner.Report `json:"results" yaml:"results"`
	Summary runner.Summary  `json:"summary" yaml:"summary"`
}

func (v runView) RenderText(s ux.Styles) string {
	var b strings.Builder

	for _, rep := range v.Reports {
		res := rep.Result
		passed := res.Verdict == engine.Passed

		fmt.Fprintf(&b, "%s  %s", s.Verdict(passed, string(res.Verdict)), s.Title.Render(rep.Descriptor.Title))
		if rep.Descriptor.ID != "" {
			fmt.Fprintf(&b, " %s", s.Muted.Render("("+rep.Descriptor.ID+")"))
		}
		fmt.Fprintf(&b, "  %s\n", s.Muted.Render(fmt.Sprintf("%.2fs %s", res.ElapsedSeconds, modeLabel(res))))

		if res.ErrorMessage != "" {
			fmt.Fprintf(&b, "    %s\n", s.Failed.Render(res.ErrorMessage))
		}
		writeLog(&b, s, res.Log, "    ")
	}

	sum := v.Summary
	fmt.Fprintf(&b, "\n%s %d total, %s, %s",
		s.Label.Render("Summary:"),
		sum.Total,
		s.Passed.Render(fmt.Sprintf("%d passed", sum.Passed)),
		s.Verdict(sum.Failed == 0, fmt.Sprintf("%d failed", sum.Failed)),
	)
	if sum.AIUsed > 0 || sum.Fallbacks > 0 {
		fmt.Fprintf(&b, " %s", s.Muted.Render(fmt.Sprintf("(ai %d, fallback %d)", sum.AIUsed, sum.Fallbacks)))
	}
	b.WriteString("\n")

	return b.String()
}

func modeLabel(res engine.Result) string {
	if res.AIUsed && res.Provider != "" {
		return fmt.Sprintf("%s/%s", res.Mode, res.Provider)
	}
	return string(res.Mode)
}

func writeLog(b *strings.Builder, s ux.Styles, entries []engine.LogEntry, indent string) {
	for _, e := range entries {
		style := s.Muted
		switch e.Type {
		case engine.CategorySuccess:
			style = s.Passed
		case engine.CategoryWarning:
			style = s.Warning
		case engine.CategoryError:
			style = s.Failed
		}
		fmt.Fprintf(b, "%s%s %s\n", indent, s.Muted.Render(e.Timestamp.Format("15:04:05.000")), style.Render(e.Message))
	}
}

// stepsView is the output of verdict steps.
type stepsView struct {
	Cases []stepsCase `json:"cases" yaml:"cases"`
}

type stepsCase struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Steps []string `json:"steps" yaml:"steps"`
}

func (v stepsView) RenderText(s ux.Styles) string {
	var b strings.Builder
	for i, c := range v.Cases {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n", s.Title.Render(c.Title), s.Muted.Render("("+c.ID+")"))
		if len(c.Steps) == 0 {
			fmt.Fprintf(&b, "  %s\n", s.Warning.Render("no steps"))
			continue
		}
		for n, step := range c.Steps {
			fmt.Fprintf(&b, "  %d. %s\n", n+1, step)
		}
	}
	return b.String()
}

// historyListView is the output of verdict history list.
type historyListView struct {
	Records []*history.Record `json:"records" yaml:"records"`
}

func (v historyListView) RenderText(s ux.Styles) string {
	if len(v.Records) == 0 {
		return s.Muted.Render("No executions recorded.") + "\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCASE\tSTATUS\tMODE\tTIME\tSTARTED")
	for _, r := range v.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%s\n",
			r.ID, r.CaseID, r.Status, r.Mode, r.ExecutionTime, r.StartedAt.Local().Format(timeLayout))
	}
	_ = w.Flush()

	return b.String()
}

// recordView is the output of verdict history show.
type recordView history.Record

func (r recordView) RenderText(s ux.Styles) string {
	var b strings.Builder

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", s.Label.Render(fmt.Sprintf("%-12s", label+":")), value)
		}
	}

	status := string(r.Status)
	if r.Status.Done() {
		status = s.Verdict(r.Status == history.StatusPassed, status)
	} else {
		status = s.Warning.Render(status)
	}

	fmt.Fprintf(&b, "%s\n", s.Title.Render(r.Title))
	field("ID", r.ID)
	field("Case", r.CaseID)
	field("Status", status)
	field("Mode", string(r.Mode))
	field("Provider", r.AIProvider)
	field("Executed by", r.ExecutedBy)
	field("Time", fmt.Sprintf("%.2fs", r.ExecutionTime))
	field("Started", r.StartedAt.Local().Format(timeLayout))
	if r.CompletedAt != nil {
		field("Completed", r.CompletedAt.Local().Format(timeLayout))
	}
	field("Fingerprint", r.Fingerprint)
	if r.ErrorMessage != "" {
		field("Error", s.Failed.Render(r.ErrorMessage))
	}

	if len(r.Log) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.Label.Render("Execution log:"))
		writeLog(&b, s, r.Log, "  ")
	}

	return b.String()
}

// providerListView is the output of verdict provider list.
type providerListView struct {
	Providers []providerRow `json:"providers" yaml:"providers"`
}

type providerRow struct {
	Name          string `json:"name" yaml:"name"`
	DisplayName   string `json:"display_name" yaml:"display_name"`
	Model         string `json:"model" yaml:"model"`
	APIKeyEnv     string `json:"api_key_env" yaml:"api_key_env"`
	CredentialSet bool   `json:"credential_set" yaml:"credential_set"`
}

func (v providerListView) RenderText(ux.Styles) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tNAME\tMODEL\tKEY ENV\tCREDENTIAL")
	for _, p := range v.Providers {
		cred := "missing"
		if p.CredentialSet {
			cred = "set"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.DisplayName, p.Model, p.APIKeyEnv, cred)
	}
	_ = w.Flush()
	return b.String()
}

// doctorView is the output of verdict doctor.
type doctorView struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (v doctorView) RenderText(s ux.Styles) string {
	var b strings.Builder
	for _, c := range v.Checks {
		fmt.Fprintf(&b, "%s  %-20s %s\n", statusMark(s, c.Result.Status), c.Name, c.Result.Message)
	}
	fmt.Fprintf(&b, "\n%s %s\n", s.Label.Render("Overall:"), statusMark(s, v.Status))
	return b.String()
}

func statusMark(s ux.Styles, status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return s.Passed.Render(status.String())
	case health.StatusDegraded:
		return s.Warning.Render(status.String())
	default:
		return s.Failed.Render(status.String())
	}
}
