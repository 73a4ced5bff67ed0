package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

var csvHeader = []string{"Timestamp (UTC)", "Event Type", "User Email", "IP Address", "Document", "Details"}

// WriteCSV renders events as a CSV report, newest first in the order given.
func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range events {
		email := e.UserEmail
		if email == "" {
			email = "Anonymous"
		}
		ip := e.IPAddress
		if ip == "" {
			ip = "Unknown"
		}
		details := "{}"
		if e.Metadata != nil {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("encoding event metadata: %w", err)
			}
			details = string(raw)
		}

		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Type),
			email,
			ip,
			e.DocumentID,
			details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
