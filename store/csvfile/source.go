/*
Package csvfile provides a CSV-backed implementation of generic.TableSource.

PURPOSE:
  Binds logical table names to CSV files on disk and reads them through
  gota dataframes. Replaces hard-coded file paths: the study asks for
  "population", the source knows which file that is.

TYPES:
  Every column is read as a string (type detection off). Numeric parsing
  happens later in generic.Table so that "0.40" stays "0.40" and a bad cell
  is reported with its column and row instead of becoming NaN.

FILTERS:
  The UN population file carries every country and every year. Filters are
  applied by the dataframe while loading so only the relevant rows reach
  the pipeline:

    src := csvfile.New(map[string]string{"population": "WPP2022.csv"})
    src.WithFilter("population", csvfile.Filter{Column: "Time", Values: []string{"2019"}})

  Filtering here is an optimisation for large files. The pipeline still
  selects one population and one year itself.

SEE ALSO:
  - generic/store.go: TableSource interface
  - store/sqlite/sqlite.go: Imports tables read by ReadTable
*/
package csvfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/warp/copd-rates/generic"
)

// Filter keeps rows whose Column equals one of Values.
type Filter struct {
	Column string
	Values []string
}

// Source maps logical table names to CSV file paths.
type Source struct {
	files   map[string]string
	filters map[string][]Filter
}

// New creates a source over the given name -> path bindings.
func New(files map[string]string) *Source {
	s := &Source{
		files:   make(map[string]string, len(files)),
		filters: make(map[string][]Filter),
	}
	for name, path := range files {
		s.files[name] = path
	}
	return s
}

// WithFilter adds a row filter to a table and returns s.
func (s *Source) WithFilter(table string, f Filter) *Source {
	s.filters[table] = append(s.filters[table], f)
	return s
}

// Table reads the file bound to name.
func (s *Source) Table(ctx context.Context, name string) (*generic.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrTableNotFound, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s for table %q: %w", path, name, err)
	}
	defer f.Close()

	return ReadTable(name, f, s.filters[name]...)
}

// Names lists the bound table names.
func (s *Source) Names(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// ReadTable parses CSV with a header row into a table, applying filters
// in order.
func ReadTable(name string, r io.Reader, filters ...Filter) (*generic.Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read table %q: %w", name, df.Err)
	}

	for _, f := range filters {
		if !hasColumn(df, f.Column) {
			return nil, &generic.ColumnError{Table: name, Column: f.Column}
		}
		df = df.Filter(dataframe.F{
			Colname:    f.Column,
			Comparator: series.In,
			Comparando: f.Values,
		})
		if df.Err != nil {
			return nil, fmt.Errorf("filter table %q on %s: %w", name, f.Column, df.Err)
		}
	}

	records := df.Records()
	if len(records) == 0 {
		return generic.NewTable(name, df.Names(), nil), nil
	}
	return generic.NewTable(name, records[0], records[1:]), nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Compile-time interface checks
var (
	_ generic.TableSource = (*Source)(nil)
	_ generic.TableLister = (*Source)(nil)
)
