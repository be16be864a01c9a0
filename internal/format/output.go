package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Tabular is implemented by payloads with a natural row layout.
type Tabular interface {
	TableHeaders() []string
	TableRows() [][]string
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table
// - yaml
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		return WriteTable(w, v)
	case "yaml", "yml":
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteYAML writes v as YAML with the same keys the JSON output uses.
func WriteYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(x); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTable renders the envelope's data as a table followed by its hints.
// Payloads that are not Tabular render as a field/value table.
func WriteTable(w io.Writer, v any) error {
	data, hints := unwrap(v)

	var headers []string
	var rows [][]string
	if t, ok := data.(Tabular); ok {
		headers, rows = t.TableHeaders(), t.TableRows()
	} else {
		var err error
		headers, rows, err = fieldRows(data)
		if err != nil {
			return err
		}
	}

	if len(rows) == 0 {
		if _, err := fmt.Fprintln(w, "(no results)"); err != nil {
			return err
		}
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(headers...).
			Rows(rows...)
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}
	for _, h := range hints {
		if _, err := fmt.Fprintf(w, "hint: %s\n", h); err != nil {
			return err
		}
	}
	return nil
}

func unwrap(v any) (any, []string) {
	env, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	data, ok := env["data"]
	if !ok {
		return v, nil
	}
	var hints []string
	switch h := env["_hints"].(type) {
	case []string:
		hints = h
	case string:
		hints = []string{h}
	}
	return data, hints
}

func fieldRows(v any) ([]string, [][]string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, nil, err
	}
	headers := []string{"FIELD", "VALUE"}
	switch t := x.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, cell(t[k])})
		}
		return headers, rows, nil
	case []any:
		rows := make([][]string, 0, len(t))
		for i, e := range t {
			rows = append(rows, []string{fmt.Sprint(i), cell(e)})
		}
		return []string{"#", "VALUE"}, rows, nil
	case nil:
		return headers, nil, nil
	default:
		return headers, [][]string{{"value", cell(t)}}, nil
	}
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, _ := json.Marshal(t)
		return strings.TrimSpace(string(b))
	}
}
