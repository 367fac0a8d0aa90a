// Command archive inspects the detection archive and recompiles the report
// of a past session.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/repository/sqlite"
	"potholewatch/internal/service/report"
)

func main() {
	dbPath := flag.String("db", "data/potholes.db", "Database path")
	sessionID := flag.String("session", "", "Session to recompile; lists sessions when empty")
	out := flag.String("out", "pothole_report.pdf", "Output file for the recompiled report")
	flag.Parse()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sessions := sqlite.NewSessionRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	if *sessionID == "" {
		if err := listSessions(os.Stdout, sessions, detections); err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		return
	}

	records, err := detections.GetBySession(*sessionID)
	if err != nil {
		log.Fatalf("Failed to read session %s: %v", *sessionID, err)
	}
	if len(records) == 0 {
		log.Fatalf("No detections archived for session %s", *sessionID)
	}

	doc, err := report.NewCompiler(logger.NewWithWriter(os.Stderr)).Compile(records)
	if errors.Is(err, report.ErrNoFindings) {
		fmt.Printf("⚠️  Session %s has no potholes, writing the empty report\n", *sessionID)
	} else if err != nil {
		log.Fatalf("Failed to compile report: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := os.WriteFile(*out, doc.Data, 0644); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	fmt.Printf("✅ Wrote %s: %d section(s), %d page(s), %d bytes\n", *out, len(doc.Sections), doc.Pages, doc.Size())
}

// listSessions prints one line per archived session. Sessions whose counts
// cannot be read are skipped with a warning.
func listSessions(w io.Writer, sessions repository.SessionRepository, detections repository.DetectionRepository) error {
	all, err := sessions.GetAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(w, "No sessions archived")
		return nil
	}

	fmt.Fprintf(w, "📊 %d session(s):\n", len(all))
	for _, s := range all {
		total, err := detections.GetTotalCount(&model.DetectionFilter{SessionID: s.ID})
		if err != nil {
			log.Printf("⚠️  Failed to count detections for %s: %v", s.ID, err)
			continue
		}
		findings, err := detections.GetTotalCount(&model.DetectionFilter{SessionID: s.ID, FindingsOnly: true})
		if err != nil {
			log.Printf("⚠️  Failed to count findings for %s: %v", s.ID, err)
			continue
		}

		stopped := "running"
		if s.StoppedAt != nil {
			stopped = s.StoppedAt.Format(model.TimestampLayout)
		}
		fmt.Fprintf(w, "   - %s  started %s  stopped %s  frames %d  findings %d\n",
			s.ID, s.StartedAt.Format(model.TimestampLayout), stopped, total, findings)
	}
	return nil
}
