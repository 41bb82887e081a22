// Command copdstat computes crude and age-standardised COPD death rates
// from the command line.
//
//	copdstat init > study.yaml
//	copdstat import --db copd.db --study study.yaml
//	copdstat report --db copd.db
//	copdstat tables --db copd.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	studyPath string
	dbPath    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "copdstat",
		Short: "Crude and age-standardised COPD death rates",
		Long: `copdstat compares COPD mortality between populations.

For every population of the study it computes the crude death rate and the
age-standardised death rate (ASDR, WHO world standard population), both per
100 000 persons. Source tables are read from the CSV files named in the
study definition, or from a SQLite database filled by "copdstat import".

Without --study the built-in Uganda / USA 2019 study is used.`,
		// Don't show usage when there's an error
		SilenceUsage: true,
		// Don't show errors (main prints them)
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.studyPath, "study", "s", "", "study definition YAML (default: built-in study)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database with imported tables")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log one line per population")

	root.AddCommand(
		newReportCmd(opts),
		newImportCmd(opts),
		newTablesCmd(opts),
		newInitCmd(),
	)
	return root
}
