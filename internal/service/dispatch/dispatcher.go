// Package dispatch hands compiled reports to the notification service and
// exports them locally for the operator.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/service/report"
	"potholewatch/internal/service/storage"
)

// Error is a failed send. StatusCode is 0 when no response arrived.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return "dispatch failed: " + e.Detail
	}
	return fmt.Sprintf("dispatch failed: %d - %s", e.StatusCode, e.Detail)
}

// Confirmation is the outcome of one dispatch. The local export is
// independent of delivery, so its failure is carried in ExportErr rather
// than returned as a dispatch error.
type Confirmation struct {
	Message   string // acknowledgment from the notification service
	Path      string // local export, empty if the export failed
	ExportErr error
}

type sendResponse struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// Dispatcher sends reports to POST /send_email/.
type Dispatcher struct {
	baseURL   string
	recipient string
	subject   string
	client    *http.Client
	exporter  *storage.Exporter
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher with a fixed recipient and subject.
func NewDispatcher(baseURL, recipient, subject string, timeout time.Duration, exporter *storage.Exporter, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		recipient: recipient,
		subject:   subject,
		client:    &http.Client{Timeout: timeout},
		exporter:  exporter,
		logger:    logger,
	}
}

// Dispatch sends doc and then exports it locally. The returned error is the
// send outcome only. The export happens whether or not the send succeeded,
// and its outcome is always on the Confirmation.
func (d *Dispatcher) Dispatch(ctx context.Context, doc *report.Document, location string) (*Confirmation, error) {
	if location == "" {
		location = doc.Location
	}

	conf := &Confirmation{}
	message, sendErr := d.send(ctx, doc, location)
	if sendErr != nil {
		d.logger.Error("Error sending report: %v", sendErr)
	} else {
		conf.Message = message
		d.logger.Info("📧 Report sent to %s: %s", d.recipient, message)
	}

	path, exportErr := d.exporter.Save(doc.Data)
	if exportErr != nil {
		d.logger.Error("Error exporting report: %v", exportErr)
		conf.ExportErr = exportErr
	} else {
		conf.Path = path
	}

	return conf, sendErr
}

// Body renders the free-text message body for a location.
func Body(location string) string {
	return fmt.Sprintf("Pothole report for location: %s. See attached PDF.", location)
}

func (d *Dispatcher) send(ctx context.Context, doc *report.Document, location string) (string, error) {
	body, contentType, err := d.form(doc, location)
	if err != nil {
		return "", &Error{Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/send_email/", body)
	if err != nil {
		return "", &Error{Detail: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &Error{Detail: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Detail: err.Error()}
	}

	var parsed sendResponse
	jsonErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := ""
		if jsonErr == nil {
			detail = detailText(parsed.Detail)
			if detail == "" {
				detail = parsed.Message
			}
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return "", &Error{StatusCode: resp.StatusCode, Detail: detail}
	}

	if jsonErr != nil {
		return "", &Error{StatusCode: resp.StatusCode, Detail: fmt.Sprintf("invalid response: %v", jsonErr)}
	}
	return parsed.Message, nil
}

func (d *Dispatcher) form(doc *report.Document, location string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"to_email", d.recipient},
		{"subject", d.subject},
		{"body", Body(location)},
		{"location", location},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_file"; filename="%s"`, storage.ReportFilename))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

// detailText accepts the string form of "detail" as well as the list of
// validation errors some frameworks return.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}
