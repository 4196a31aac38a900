package activity

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/Krish-Depani/account-security/models"
)

var csvHeader = []string{"Timestamp", "Action", "Status", "Severity", "Details", "IP Address"}

// WriteCSV renders activities in the export column layout.
func WriteCSV(w io.Writer, logs []models.Activity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range logs {
		details, err := json.Marshal(a.Details)
		if err != nil {
			return err
		}
		record := []string{
			a.CreatedAt.UTC().Format(time.RFC3339),
			string(a.Action),
			string(a.Status),
			string(a.Severity),
			string(details),
			a.IPAddress,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
