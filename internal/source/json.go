package source

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/titanous/json5"
)

// JSONLines reads a JSON feed of sale objects. The feed is either an array or
// an object whose "rows" or "data" member is the array. Feeds scraped out of
// script tags often carry trailing commas or unquoted keys, so the input is
// parsed as JSON5. Each object becomes a line of the named fields joined by
// tabs; missing fields are skipped.
func JSONLines(data []byte, fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, eris.New("source: json feed needs json_fields")
	}

	var doc any
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "source: parse json feed")
	}

	rows, err := feedRows(doc)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		cells := make([]string, 0, len(fields))
		for _, f := range fields {
			cells = append(cells, scalar(obj[f]))
		}
		if line := joinCells(cells); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func feedRows(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"rows", "data"} {
			if rows, ok := v[key].([]any); ok {
				return rows, nil
			}
		}
	}
	return nil, eris.New("source: json feed is not an array of rows")
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
