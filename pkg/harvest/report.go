package harvest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how WriteReport renders records.
type Format string

const (
	// FormatText writes each record's debug representation on its own line.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per line. Absent fields are omitted.
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteReport writes the report records to w in completion order.
func WriteReport(w io.Writer, report *Report, format Format) error {
	bw := bufio.NewWriter(w)

	switch format {
	case FormatText, "":
		for _, rec := range report.Records {
			if _, err := fmt.Fprintln(bw, rec.String()); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	case FormatJSON:
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		for _, rec := range report.Records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
