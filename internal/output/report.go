package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// extensionFor picks the file extension for a canonical formatter name
func extensionFor(name string) string {
	switch {
	case strings.Contains(name, "csv"):
		return "csv"
	case name == "html", name == "json":
		return name
	default:
		return "txt"
	}
}

func lookupFormatter(format string) (Formatter, error) {
	if f := GetFormatterByName(format); f != nil {
		return f, nil
	}
	// enrich error with available formatters and aliases
	return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format,
		strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}

// WriteReport renders report in format to w.
func WriteReport(w io.Writer, report *Report, format string) error {
	f, err := lookupFormatter(format)
	if err != nil {
		return err
	}
	data, err := f.Format(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// GenerateReport writes report in format to a timestamped file in dir and
// returns the paths written. The "all" format writes every formatter the
// report has data for.
func GenerateReport(report *Report, format, dir string) ([]string, error) {
	if NormalizeFormatName(format) == "all" {
		var paths []string
		for _, f := range builtInFormatters {
			path, err := WriteFormatted(f, report, dir, extensionFor(f.Name()))
			if errors.Is(err, ErrMissingData) {
				continue
			}
			if err != nil {
				return paths, fmt.Errorf("%s: %w", f.Name(), err)
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	f, err := lookupFormatter(format)
	if err != nil {
		return nil, err
	}
	path, err := WriteFormatted(f, report, dir, extensionFor(f.Name()))
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
