package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/measure"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)

	return tw
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	return measure.Round(d).String()
}

// writeStatusTable prints one row per step in execution order.
func writeStatusTable(out io.Writer, res *pipeline.RunResult, msr measure.Measure) {
	tw := newTable(out)
	tw.AppendHeader(table.Row{"Step", "Status", "Exit", "Waited", "Duration", "Artifacts"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	for _, step := range res.Steps() {
		exit := "-"
		if step.Status == model.StatusSucceeded || step.Status == model.StatusFailed {
			exit = strconv.Itoa(step.ExitCode)
		}

		waited := "-"
		if metric, ok := msr.GetMetric(step.ID); ok && step.Status != model.StatusSkipped {
			waited = formatDuration(metric.WaitDuration())
		}

		tw.AppendRow(table.Row{step.ID, step.Status, exit, waited, formatDuration(step.Duration()), strings.Join(step.Produced, ", ")})
	}

	tw.AppendFooter(table.Row{"", "", "", "Total", formatDuration(res.Elapsed()), ""})
	tw.Render()
}

func writeCriticalPath(out io.Writer, graph *pipeline.Graph, res *pipeline.RunResult) {
	path, total := graph.CriticalPath(res.Durations())
	if len(path) == 0 || total == 0 {
		return
	}

	fmt.Fprintf(out, "Critical path: %s (%s)\n", strings.Join(path, " -> "), formatDuration(total))
}

// writeFailures prints the first failing step of each independent branch, with the tail of its output.
func writeFailures(out io.Writer, err error) {
	var runErr *pipeline.RunFailedError
	if !errors.As(err, &runErr) {
		return
	}

	for _, failure := range runErr.Failures {
		fmt.Fprintf(out, "\nFAILED %s: %v\n", failure.Step, failure.Err)

		if output := failureOutput(failure.Err); len(output) > 0 {
			fmt.Fprintln(out, "  "+strings.ReplaceAll(tail(string(output), 20), "\n", "\n  "))
		}
	}

	if len(runErr.Skipped) > 0 {
		fmt.Fprintf(out, "\nSkipped: %s\n", strings.Join(runErr.Skipped, ", "))
	}

	if runErr.Canceled {
		fmt.Fprintln(out, "Run canceled.")
	}
}

func failureOutput(err error) []byte {
	var failed *pipeline.StepFailedError
	if errors.As(err, &failed) {
		return failed.Output
	}

	var timeout *pipeline.StepTimeoutError
	if errors.As(err, &timeout) {
		return timeout.Output
	}

	return nil
}

func tail(output string, lines int) string {
	all := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}

	return strings.Join(all, "\n")
}

// writePackageContent prints the files of the published artifacts, in package order.
func writePackageContent(out io.Writer, manifest *pipeline.Manifest, artifacts []string) {
	if len(artifacts) == 0 {
		return
	}

	content, err := manifest.Select(artifacts)
	if err != nil {
		fmt.Fprintf(out, "Package content unavailable: %v\n", err)

		return
	}

	tw := newTable(out)
	tw.AppendHeader(table.Row{"Artifact", "Step", "Files"})

	for _, id := range content.IDs() {
		entry, _ := content.Lookup(id)
		tw.AppendRow(table.Row{id, entry.Step, len(entry.Files)})
	}

	tw.Render()
}
