package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/doctransfer/signcore/audit"
)

func AuditCommand() {
	auditFlags := flag.NewFlagSet("audit", flag.ExitOnError)

	var dbPath string
	var documentID string
	var eventType string
	var email string
	var start string
	var end string
	var limit int
	var offset int
	var asCSV bool

	auditFlags.StringVar(&dbPath, "db", "audit.db", "Path to the audit trail database")
	auditFlags.StringVar(&documentID, "document", "", "Filter by document ID")
	auditFlags.StringVar(&eventType, "event", "", "Filter by event type")
	auditFlags.StringVar(&email, "email", "", "Filter by user email (substring match)")
	auditFlags.StringVar(&start, "start", "", "Only events at or after this RFC 3339 time")
	auditFlags.StringVar(&end, "end", "", "Only events before this RFC 3339 time")
	auditFlags.IntVar(&limit, "limit", 0, "Maximum number of events (0 uses the store default of 50, -1 returns all)")
	auditFlags.IntVar(&offset, "offset", 0, "Number of events to skip")
	auditFlags.BoolVar(&asCSV, "csv", false, "Write CSV instead of JSON lines")

	auditFlags.Usage = func() {
		fmt.Printf("Usage: %s audit [options]\n\n", os.Args[0])
		fmt.Println("Query the audit trail store")
		fmt.Println("\nOptions:")
		auditFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s audit -db audit.db -document 4f7c\n", os.Args[0])
		fmt.Printf("  %s audit -event signature_completed -csv > trail.csv\n", os.Args[0])
	}

	if err := auditFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse audit flags: %v", err)
		osExit(1)
	}

	filter := audit.Filter{
		DocumentID: documentID,
		Type:       audit.EventType(eventType),
		UserEmail:  email,
		Limit:      limit,
		Offset:     offset,
	}

	var err error
	if start != "" {
		filter.Start, err = time.Parse(time.RFC3339, start)
		if err != nil {
			log.Printf("Invalid -start time: %v", err)
			osExit(1)
			return
		}
	}
	if end != "" {
		filter.End, err = time.Parse(time.RFC3339, end)
		if err != nil {
			log.Printf("Invalid -end time: %v", err)
			osExit(1)
			return
		}
	}

	store, err := audit.OpenStore(dbPath)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close store: %v", err)
		}
	}()

	events, err := store.Events(context.Background(), filter)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	if asCSV {
		if err := audit.WriteCSV(os.Stdout, events); err != nil {
			log.Println(err)
			osExit(1)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}
}
