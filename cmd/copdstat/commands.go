package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/copd-rates/factory"
	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/report"
	"github.com/warp/copd-rates/store/csvfile"
	"github.com/warp/copd-rates/store/sqlite"
)

// =============================================================================
// REPORT
// =============================================================================

func newReportCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report [population...]",
		Short: "Print crude rates and ASDRs",
		Long: `Print the crude death rate and ASDR of every population in the study,
or only of the populations named as arguments.

Examples:
  # Built-in study from the CSV files in the current directory
  copdstat report --study study.yaml

  # Tables imported into SQLite, JSON output
  copdstat report --db copd.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			def, err := loadDefinition(opts.studyPath)
			if err != nil {
				return err
			}
			src, closeSrc, err := openSource(opts, def)
			if err != nil {
				return err
			}
			defer closeSrc()

			study, err := factory.NewStudy(&def.Config, src)
			if err != nil {
				return err
			}
			if opts.verbose {
				study.Logger = log.New(cmd.ErrOrStderr(), "copdstat: ", 0)
			}

			results, err := study.Run(ctx)
			if err != nil {
				return err
			}
			results, err = selectResults(results, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				err = report.WriteJSON(out, def.Config, results)
			} else {
				err = report.Write(out, def.Config, results)
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != nil {
					return fmt.Errorf("%d of %d populations failed", countFailed(results), len(results))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

// selectResults keeps the named populations, in the order named.
func selectResults(results []generic.Result, ids []string) ([]generic.Result, error) {
	if len(ids) == 0 {
		return results, nil
	}
	byID := make(map[generic.PopulationID]generic.Result, len(results))
	for _, r := range results {
		byID[r.PopulationID] = r
	}
	out := make([]generic.Result, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[generic.PopulationID(id)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", generic.ErrPopulationNotFound, id)
		}
		out = append(out, r)
	}
	return out, nil
}

func countFailed(results []generic.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// =============================================================================
// IMPORT
// =============================================================================

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import [table=file.csv...]",
		Short: "Import CSV tables into SQLite",
		Long: `Import CSV files into the --db database under their logical table names.

Without arguments every file bound in the study definition is imported.
Importing a table replaces any previous table of the same name.

Examples:
  copdstat import --db copd.db --study study.yaml
  copdstat import --db copd.db population=WPP2022_PopulationByAge5GroupSex_2019.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			files, src, err := importFiles(opts, args)
			if err != nil {
				return err
			}

			store, err := sqlite.New(opts.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			names := make([]string, 0, len(files))
			for name := range files {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				path := files[name]
				t, err := src.Table(ctx, name)
				if err != nil {
					return err
				}
				if err := store.SaveTableFrom(ctx, t, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d rows from %s\n", name, t.Len(), path)
			}
			return nil
		},
	}
}

// importFiles returns the files to import and the source reading them.
// Files named on the command line are read whole; a definition's files go
// through its population filters.
func importFiles(opts *options, args []string) (map[string]string, *csvfile.Source, error) {
	if len(args) > 0 {
		files := make(map[string]string, len(args))
		for _, arg := range args {
			name, path, ok := strings.Cut(arg, "=")
			if !ok || name == "" || path == "" {
				return nil, nil, fmt.Errorf("expected table=file.csv, got %q", arg)
			}
			files[name] = path
		}
		return files, csvfile.New(files), nil
	}

	def, err := loadDefinition(opts.studyPath)
	if err != nil {
		return nil, nil, err
	}
	if len(def.Files) == 0 {
		return nil, nil, fmt.Errorf("the study binds no files; pass table=file.csv arguments")
	}
	return def.Files, def.BoundSource(), nil
}

// =============================================================================
// TABLES
// =============================================================================

func newTablesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List imported tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := sqlite.New(opts.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.ListTables(ctx)
			if err != nil {
				return err
			}
			return writeTables(cmd.OutOrStdout(), infos)
		},
	}
}

func writeTables(out io.Writer, infos []sqlite.TableInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROWS\tCOLUMNS\tSOURCE\tIMPORTED")
	for _, info := range infos {
		source := info.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			info.Name, info.Rows, len(info.Columns), source, info.ImportedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// =============================================================================
// INIT
// =============================================================================

func newInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print the built-in study definition",
		Long: `Print the built-in Uganda / USA 2019 study definition as YAML, to start a
new study from. With --output the definition is written to a file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), factory.DefaultStudyYAML())
				return err
			}
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("%s already exists", output)
			}
			return os.WriteFile(output, []byte(factory.DefaultStudyYAML()), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func loadDefinition(path string) (*factory.Definition, error) {
	if path == "" {
		return factory.ParseDefinition([]byte(factory.DefaultStudyYAML()), "")
	}
	return factory.LoadDefinition(path)
}

// openSource prefers the database when --db is set, otherwise the CSV
// files of the definition.
func openSource(opts *options, def *factory.Definition) (generic.TableSource, func(), error) {
	if opts.dbPath != "" {
		store, err := sqlite.New(opts.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	src, err := def.Source()
	if err != nil {
		return nil, nil, fmt.Errorf("%w (or pass --db)", err)
	}
	return src, func() {}, nil
}
