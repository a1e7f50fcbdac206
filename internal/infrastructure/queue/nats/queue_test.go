package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func TestEncodeDecodeAnalysis(t *testing.T) {
	outcome := domain.ClassOutcome(2)
	record := domain.AnalysisRecord{
		ID:        "a-1",
		DiseaseID: domain.DiseaseThyroid,
		Filename:  "scan.png",
		RiskLevel: domain.RiskHigh,
		Reason:    "Hyperthyroid",
		Outcome:   &outcome,
		Duration:  1200 * time.Millisecond,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := encodeAnalysis("reports.analyzed", record)
	if err != nil {
		t.Fatalf("encodeAnalysis() error = %v", err)
	}
	if msg.Subject != "reports.analyzed" || msg.Header.Get("Nats-Msg-Id") != "a-1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	got, err := decodeAnalysis(msg)
	if err != nil {
		t.Fatalf("decodeAnalysis() error = %v", err)
	}
	if got.ID != "a-1" || got.DiseaseID != domain.DiseaseThyroid || got.Outcome == nil || got.Outcome.Class != 2 {
		t.Fatalf("unexpected record %+v", got)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) || got.Duration != record.Duration {
		t.Fatalf("unexpected timing fields %+v", got)
	}
}

func TestDecodeAnalysisFallsBackToHeaderID(t *testing.T) {
	msg := nats.NewMsg("reports.analyzed")
	msg.Header.Set("Nats-Msg-Id", "from-header")
	msg.Data = []byte(`{"disease_id":"ckd"}`)

	got, err := decodeAnalysis(msg)
	if err != nil {
		t.Fatalf("decodeAnalysis() error = %v", err)
	}
	if got.ID != "from-header" {
		t.Fatalf("expected header id, got %q", got.ID)
	}

	msg.Data = []byte("not json")
	if _, err := decodeAnalysis(msg); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed)); !c.Retryable {
		t.Fatalf("expected connection closed to be retryable")
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("expected canceled to be ignored, got %+v", c)
	}
	if c := classifyNATSError(nats.ErrMaxPayload); c.Retryable {
		t.Fatalf("expected max payload to be permanent")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	permanent := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(permanent); got != permanent {
		t.Fatalf("expected permanent error unchanged, got %v", got)
	}
	if !domain.IsKind(wrapTemporaryIfNeeded(gobreaker.ErrOpenState), domain.ErrTemporary) {
		t.Fatalf("expected circuit open to be temporary")
	}
}
