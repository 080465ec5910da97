package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rxsavings/claims"
	"rxsavings/config"
	"rxsavings/engine"
	"rxsavings/report"
)

// criteriaFlags is the command-line form of engine.FilterCriteria.
type criteriaFlags struct {
	start, end          string
	affiliated, special string
	ftc                 string
	classes, drugs      []string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.start, "start", "", "first date of service, YYYY-MM-DD")
	fs.StringVar(&f.end, "end", "", "last date of service, YYYY-MM-DD")
	fs.StringVar(&f.affiliated, "affiliated", engine.AllLabel, "affiliated pharmacy filter: All, true or false")
	fs.StringVar(&f.special, "special", engine.AllLabel, "specialty drug filter: All, true or false")
	fs.StringVar(&f.ftc, "ftc", engine.AllLabel, "FTC report drug filter: All, true or false")
	fs.StringSliceVar(&f.classes, "class", nil, "drug class to include (repeatable)")
	fs.StringSliceVar(&f.drugs, "drug", nil, "generic name to include (repeatable)")
}

func (f *criteriaFlags) criteria() (engine.FilterCriteria, error) {
	var c engine.FilterCriteria
	var err error

	if c.DateRange.Start, err = parseDateFlag("start", f.start); err != nil {
		return c, err
	}
	if c.DateRange.End, err = parseDateFlag("end", f.end); err != nil {
		return c, err
	}
	if c.Affiliated, err = engine.ParseTriState(f.affiliated); err != nil {
		return c, fmt.Errorf("--affiliated: %w", err)
	}
	if c.IsSpecial, err = engine.ParseTriState(f.special); err != nil {
		return c, fmt.Errorf("--special: %w", err)
	}
	if c.IsFTC, err = engine.ParseTriState(f.ftc); err != nil {
		return c, fmt.Errorf("--ftc: %w", err)
	}
	c.DrugClasses = f.classes
	c.GenericNames = f.drugs
	return c, c.Validate()
}

func parseDateFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(claims.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func newReportCommand(a *app) *cobra.Command {
	var (
		filters  criteriaFlags
		dataDir  string
		pgURL    string
		datasets []string
		fee      int
		top      int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print KPI cards, savings by class, top drugs and monthly spend",
		Example: "  dashboard report --data data/\n" +
			"  dashboard report --data data/ --dataset pbm_a --start 2023-01-01 --end 2023-12-31 --special true",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(func(cfg *config.Config) {
				if dataDir != "" {
					cfg.DataDir = dataDir
				}
				if pgURL != "" {
					cfg.PGURL = pgURL
				}
				if cmd.Flags().Changed("fee") {
					cfg.FeePerRx = fee
				}
			})
			if err != nil {
				return err
			}

			criteria, err := filters.criteria()
			if err != nil {
				return err
			}

			eng, err := newEngine(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			if len(datasets) == 0 {
				datasets = eng.Datasets()
			}
			v, err := eng.BuildFilteredView(datasets, criteria)
			if err != nil {
				return err
			}

			s := report.Summary{
				KPIs:       engine.Summarize(v),
				ClassShare: eng.ClassSavingsShare(v),
			}
			if s.TopDrugs, err = eng.TopDrugs(v, top, engine.MetricDiff); err != nil {
				return err
			}
			if s.Months, err = eng.MonthlySpend(v, a.cfg.FeePerRx); err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), s)
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&dataDir, "data", "", "directory of Parquet dataset files")
	cmd.Flags().StringVar(&pgURL, "pg", "", "PostgreSQL connection string")
	cmd.Flags().StringSliceVar(&datasets, "dataset", nil, "dataset to include (repeatable, default all)")
	cmd.Flags().IntVar(&fee, "fee", config.DefaultFeePerRx, "dispensing fee per Rx for the NADAC line")
	cmd.Flags().IntVar(&top, "top", 10, "number of top saving drugs")
	return cmd
}
