package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/workforce-hr/workforce/internal/shared"
)

// WriteCSV serialises audit entries, one row per entry with meta as JSON.
func WriteCSV(w io.Writer, rows []shared.AuditLog) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"At", "Actor", "Action", "Entity", "EntityID", "Meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			data, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			meta = string(data)
		}
		if err := writer.Write([]string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
