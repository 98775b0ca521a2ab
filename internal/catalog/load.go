package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/datasubjects/internal/schema"
)

// LoadError reports a problem in a catalog file.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads every CUE file in dir as one package and builds a Static
// catalog from its table and dimension fields.
func Load(dir string) (*Static, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	return FromValue(value)
}

// LoadString builds a catalog from CUE source held in memory.
func LoadString(src string) (*Static, error) {
	return FromValue(cuecontext.New().CompileString(src))
}

// FromValue builds a catalog from an already evaluated CUE value.
func FromValue(v cue.Value) (*Static, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tables, err := parseTables(v)
	if err != nil {
		return nil, err
	}
	dims, err := parseDimensions(v)
	if err != nil {
		return nil, err
	}
	return NewStatic(tables, dims)
}

func parseTables(v cue.Value) ([]schema.TableDescriptor, error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tables []schema.TableDescriptor
	for iter.Next() {
		name := iter.Label()
		tv := iter.Value()

		td := schema.TableDescriptor{Name: name}
		if td.IDColumns, err = stringList(tv, "id_columns"); err != nil {
			return nil, err
		}
		if td.VisitJoinColumn, err = optionalString(tv, "visit_join_column"); err != nil {
			return nil, err
		}
		if td.ActionJoinColumn, err = optionalString(tv, "action_join_column"); err != nil {
			return nil, err
		}
		if td.Bridges, err = parseBridges(tv, name); err != nil {
			return nil, err
		}
		tables = append(tables, td)
	}
	return tables, nil
}

func parseBridges(tv cue.Value, table string) ([]schema.Bridge, error) {
	bv := tv.LookupPath(cue.ParsePath("bridges"))
	if !bv.Exists() {
		return nil, nil
	}

	list, err := bv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var bridges []schema.Bridge
	for list.Next() {
		item := list.Value()
		target, err := requiredString(item, "table", fmt.Sprintf("table.%s.bridges", table))
		if err != nil {
			return nil, err
		}
		column, err := requiredString(item, "column", fmt.Sprintf("table.%s.bridges", table))
		if err != nil {
			return nil, err
		}
		bridges = append(bridges, schema.Bridge{Table: target, Column: column})
	}
	return bridges, nil
}

func parseDimensions(v cue.Value) ([]schema.Dimension, error) {
	dimsVal := v.LookupPath(cue.ParsePath("dimension"))
	if !dimsVal.Exists() {
		return nil, nil
	}

	iter, err := dimsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var dims []schema.Dimension
	for iter.Next() {
		field := "dimension." + iter.Label()
		dv := iter.Value()

		table, err := requiredString(dv, "table", field)
		if err != nil {
			return nil, err
		}
		column, err := requiredString(dv, "column", field)
		if err != nil {
			return nil, err
		}
		binary, err := optionalBool(dv, "binary")
		if err != nil {
			return nil, err
		}
		actionName, err := optionalBool(dv, "action_name")
		if err != nil {
			return nil, err
		}
		kind, err := optionalString(dv, "format")
		if err != nil {
			return nil, err
		}
		values, err := stringMap(dv, "values")
		if err != nil {
			return nil, err
		}
		formatter, err := NewFormatter(kind, values)
		if err != nil {
			return nil, &LoadError{Field: field + ".format", Message: err.Error(), Pos: dv.Pos()}
		}

		dims = append(dims, Dimension{
			Table:          table,
			Column:         column,
			Binary:         binary,
			ActionNameJoin: actionName,
			Formatter:      formatter,
		})
	}
	return dims, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", &LoadError{Field: field + "." + path, Message: path + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringMap(v cue.Value, path string) (map[string]string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		label := iter.Label()
		if unq, err := strconv.Unquote(label); err == nil {
			label = unq
		}
		out[label] = s
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// TableNames returns the sorted names of every table in the catalog.
func (s *Static) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}
