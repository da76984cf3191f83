package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/strata-base/strata-go/pkg/log"
)

// RunExport exports the capture file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "category", "client_id", "topic", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.ConnectionID,
			event.Direction.String(),
			event.Category.String(),
			event.ClientID,
			event.Topic,
			eventDetail(event),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

// eventDetail summarizes the payload in one cell.
func eventDetail(event log.Event) string {
	switch {
	case event.Frame != nil:
		switch {
		case event.Frame.Handshake:
			return "handshake"
		case event.Frame.Dropped:
			return "dropped"
		default:
			return fmt.Sprintf("%d bytes", event.Frame.Size)
		}
	case event.StateChange != nil:
		return fmt.Sprintf("%s->%s", event.StateChange.OldState, event.StateChange.NewState)
	case event.Sync != nil:
		detail := strings.Join(event.Sync.Topics, ";")
		if event.Sync.Superseded {
			detail += " (superseded)"
		}
		return detail
	case event.Request != nil:
		return fmt.Sprintf("%s %s -> %d", event.Request.Method, event.Request.Path, event.Request.Status)
	case event.Error != nil:
		return fmt.Sprintf("%s: %s", event.Error.Op, event.Error.Message)
	default:
		return ""
	}
}
