package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"rxsavings/engine"
)

// WriteTable writes headers and rows as space-aligned columns.
func WriteTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// Summary is everything the text report prints.
type Summary struct {
	KPIs       engine.KpiSet
	ClassShare []engine.ClassShare
	TopDrugs   []engine.DrugSavings
	Months     []engine.MonthSpend
}

type section struct {
	title   string
	headers []string
	rows    [][]string
}

// Write prints s as titled tables. Top drugs are listed largest first.
func Write(w io.Writer, s Summary) error {
	sections := []section{
		{"Key figures", []string{"METRIC", "VALUE"}, cardRows(KPICards(s.KPIs))},
		{"Savings by class", []string{"CLASS", "TOTAL", "RX CT", "SAVINGS", "PER RX", "SHARE"}, classRows(s.ClassShare)},
		{"Top saving drugs", []string{"DRUG", "SAVINGS", "RX CT", "PER RX"}, drugRows(s.TopDrugs)},
		{"Monthly spend", []string{"MONTH", "TOTAL", "MCCPDC", "NADAC", "NADAC + FEE", "RX CT"}, monthRows(s.Months)},
	}
	for i, sec := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, sec.title); err != nil {
			return err
		}
		if err := WriteTable(w, sec.headers, sec.rows); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(sec.title), err)
		}
	}
	return nil
}

func cardRows(cards []Card) [][]string {
	rows := make([][]string, len(cards))
	for i, c := range cards {
		rows[i] = []string{c.Title, c.Value}
	}
	return rows
}

func classRows(in []engine.ClassShare) [][]string {
	rows := make([][]string, len(in))
	for i, c := range in {
		rows[i] = []string{c.Label, Dollars(c.Total, 0), Count(c.RxCt), Dollars(c.Diff, 0), Dollars(float64(c.AvgDiff), 2), Percent(c.DiffPct)}
	}
	return rows
}

func drugRows(in []engine.DrugSavings) [][]string {
	rows := make([][]string, 0, len(in))
	for _, d := range slices.Backward(in) {
		rows = append(rows, []string{d.GenericName, Dollars(d.Diff, 0), Count(d.RxCt), Dollars(float64(d.PerRx), 2)})
	}
	return rows
}

func monthRows(in []engine.MonthSpend) [][]string {
	rows := make([][]string, len(in))
	for i, m := range in {
		rows[i] = []string{m.Month.Format("2006-01"), Dollars(m.Total, 0), Dollars(m.MCTotal, 0), Dollars(m.NADAC, 0), Dollars(m.NADACLine, 0), Count(m.RxCt)}
	}
	return rows
}
