package main

import (
	"fmt"
	gio "io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"cuisine/pkg"
)

var (
	heading   = color.New(color.Bold)
	highlight = color.New(color.FgGreen, color.Bold)
	warning   = color.New(color.FgYellow)
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func printDataset(out gio.Writer, d *pkg.Dataset) {
	heading.Fprintf(out, "%s: %d rows, %d columns\n", d.Summary.Path, d.Summary.NumRows, d.Summary.NumColumns)

	columns := tablewriter.NewWriter(out)
	columns.SetHeader([]string{"Column", "Dtype", "Missing"})
	for _, col := range d.Summary.Columns {
		columns.Append([]string{col.Name, col.Dtype, strconv.Itoa(col.Missing)})
	}
	columns.Render()

	if len(d.Summary.Preview) > 0 {
		preview := tablewriter.NewWriter(out)
		preview.SetHeader(d.Summary.Header)
		preview.AppendBulk(d.Summary.Preview)
		preview.Render()
	}

	if d.Problem != "" {
		warning.Fprintf(out, "Cannot train on this file: %s\n", d.Problem)
		return
	}

	fmt.Fprintf(out, "Features: %s\n", strings.Join(d.Features, ", "))
	fmt.Fprintf(out, "Usable rows: %d, filled cells: %d\n", d.Usable, d.Filled)
	if len(d.Rejected) > 0 {
		names := make([]string, 0, len(d.Rejected))
		for name := range d.Rejected {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			warning.Fprintf(out, "Rows rejected for %s: %d\n", name, d.Rejected[name])
		}
	}

	stats := tablewriter.NewWriter(out)
	stats.SetHeader([]string{"Feature", "Min", "Max", "Mean"})
	for _, s := range d.FeatureStats {
		stats.Append([]string{s.Name, formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Mean)})
	}
	stats.Render()
}

func printRun(out gio.Writer, run *pkg.Run) {
	e := run.Evaluation
	fmt.Fprintf(out, "Trees: %d, train rows: %d, test rows: %d\n", run.Params.Trees, run.TrainSize, run.TestSize)
	highlight.Fprintf(out, "Accuracy: %s\n", formatFloat(e.Accuracy))

	report := tablewriter.NewWriter(out)
	report.SetHeader([]string{"Class", "Precision", "Recall", "F1", "Support"})
	for _, class := range e.Classes {
		report.Append([]string{class.Class, formatFloat(class.Precision), formatFloat(class.Recall), formatFloat(class.F1), strconv.Itoa(class.Support)})
	}
	for _, avg := range []struct {
		name string
		pkg.Average
	}{{"macro avg", e.MacroAvg}, {"weighted avg", e.WeightedAvg}} {
		report.Append([]string{avg.name, formatFloat(avg.Precision), formatFloat(avg.Recall), formatFloat(avg.F1), strconv.Itoa(avg.Support)})
	}
	report.Render()

	importances := tablewriter.NewWriter(out)
	importances.SetHeader([]string{"Feature", "Importance"})
	for _, importance := range e.Importances {
		importances.Append([]string{importance.Feature, formatFloat(importance.Score)})
	}
	importances.Render()
}

func printPrediction(out gio.Writer, run *pkg.Run, cuisine string) {
	fmt.Fprintf(out, "Model accuracy: %s\n", formatFloat(run.Evaluation.Accuracy))
	highlight.Fprintf(out, "Predicted cuisine: %s\n", cuisine)
}
