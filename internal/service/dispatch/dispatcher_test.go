package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/service/report"
	"potholewatch/internal/service/storage"
)

func newTestDispatcher(t *testing.T, handler http.HandlerFunc) (*Dispatcher, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewWithWriter(io.Discard)
	dir := t.TempDir()
	exporter := storage.NewExporter(dir, log)
	return NewDispatcher(server.URL, "roads@city.example", "Pothole Detection Report", 5*time.Second, exporter, log), dir
}

func testDocument() *report.Document {
	return &report.Document{Data: []byte("%PDF-1.3 test"), Pages: 1, Location: "Adyar"}
}

func TestDispatch_SendsFormAndExports(t *testing.T) {
	dispatcher, dir := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send_email/" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			return
		}

		want := map[string]string{
			"to_email": "roads@city.example",
			"subject":  "Pothole Detection Report",
			"body":     "Pothole report for location: Adyar. See attached PDF.",
			"location": "Adyar",
		}
		for field, value := range want {
			if got := r.FormValue(field); got != value {
				t.Errorf("Field %s = %q, want %q", field, got, value)
			}
		}

		file, header, err := r.FormFile("pdf_file")
		if err != nil {
			t.Errorf("Missing pdf_file: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != storage.ReportFilename {
			t.Errorf("Unexpected filename %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Expected application/pdf, got %s", ct)
		}

		io.WriteString(w, `{"message":"Email sent successfully"}`)
	})

	conf, err := dispatcher.Dispatch(context.Background(), testDocument(), "Adyar")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if conf.Message != "Email sent successfully" {
		t.Errorf("Unexpected message %q", conf.Message)
	}
	if conf.Path != filepath.Join(dir, storage.ReportFilename) {
		t.Errorf("Unexpected export path %q", conf.Path)
	}
	if data, _ := os.ReadFile(conf.Path); string(data) != "%PDF-1.3 test" {
		t.Errorf("Unexpected export content %q", data)
	}
}

func TestDispatch_FallsBackToDocumentLocation(t *testing.T) {
	var got string
	dispatcher, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.FormValue("location")
		io.WriteString(w, `{"message":"ok"}`)
	})

	if _, err := dispatcher.Dispatch(context.Background(), testDocument(), ""); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got != "Adyar" {
		t.Errorf("Expected document location, got %q", got)
	}
}

func TestDispatch_ErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Only PDF files are allowed"}`, "Only PDF files are allowed"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "field required"},
		{"message", http.StatusInternalServerError, `{"message":"smtp down"}`, "smtp down"},
		{"no body", http.StatusBadGateway, ``, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, _ := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			conf, err := dispatcher.Dispatch(context.Background(), testDocument(), "Adyar")
			var dispatchErr *Error
			if !errors.As(err, &dispatchErr) {
				t.Fatalf("Expected dispatch Error, got %v", err)
			}
			if dispatchErr.StatusCode != tt.status || dispatchErr.Detail != tt.detail {
				t.Errorf("Unexpected error %+v", dispatchErr)
			}
			if conf == nil || conf.Path == "" {
				t.Error("Expected local export despite send failure")
			}
		})
	}
}

func TestDispatch_NoResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	log := logger.NewWithWriter(io.Discard)
	dispatcher := NewDispatcher(url, "a@b.c", "s", time.Second, storage.NewExporter(t.TempDir(), log), log)

	conf, err := dispatcher.Dispatch(context.Background(), testDocument(), "Adyar")
	var dispatchErr *Error
	if !errors.As(err, &dispatchErr) || dispatchErr.StatusCode != 0 || dispatchErr.Detail == "" {
		t.Fatalf("Expected transport dispatch Error, got %v", err)
	}
	if conf.Path == "" {
		t.Error("Expected local export despite send failure")
	}
}

func TestDispatch_ExportFailureKeepsDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"Email sent successfully"}`)
	}))
	defer server.Close()

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	log := logger.NewWithWriter(io.Discard)
	exporter := storage.NewExporter(filepath.Join(blocker, "reports"), log)
	dispatcher := NewDispatcher(server.URL, "a@b.c", "s", time.Second, exporter, log)

	conf, err := dispatcher.Dispatch(context.Background(), testDocument(), "Adyar")
	if err != nil {
		t.Fatalf("Expected delivered report, got %v", err)
	}
	if conf.Message != "Email sent successfully" {
		t.Errorf("Unexpected message %q", conf.Message)
	}
	if conf.ExportErr == nil || conf.Path != "" {
		t.Errorf("Expected export failure, got path=%q err=%v", conf.Path, conf.ExportErr)
	}
}
