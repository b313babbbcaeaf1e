package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weighbridge-station/internal/core"
)

// receiptPrinter writes a plain-text receipt per closed docket. PDF
// rendering and physical printing sit behind external tooling pointed at
// the spool directory.
type receiptPrinter struct {
	dir string
}

func newReceiptPrinter(dir string) *receiptPrinter {
	return &receiptPrinter{dir: dir}
}

func (p *receiptPrinter) Print(_ context.Context, d core.Docket) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "WEIGHBRIDGE DOCKET %d\n", d.ID)
	fmt.Fprintf(&b, "Reference: %s\n", d.Reference)
	fmt.Fprintf(&b, "Closed:    %s\n", d.ClosedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Mode:      %s\n", d.Mode)
	fmt.Fprintf(&b, "Entrance:  %s %s\n", d.EntranceWeight, d.Unit)
	fmt.Fprintf(&b, "Exit:      %s %s\n", d.ExitWeight, d.Unit)
	fmt.Fprintf(&b, "Net:       %s %s\n", d.NetWeight, d.Unit)
	if d.Remarks != "" {
		fmt.Fprintf(&b, "Remarks:   %s\n", d.Remarks)
	}

	path := filepath.Join(p.dir, fmt.Sprintf("docket-%d.txt", d.ID))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// csvExporter appends one line per closed docket to a CSV file picked up by
// downstream systems.
type csvExporter struct {
	path string
}

func newCSVExporter(path string) *csvExporter {
	return &csvExporter{path: path}
}

func (e *csvExporter) Export(_ context.Context, d core.Docket) error {
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%d,%s,%d,%s,%s,%s,%s,%s\n",
		d.ID, d.Reference, d.VehicleID,
		d.EntranceWeight, d.ExitWeight, d.NetWeight, d.Unit,
		d.ClosedAt.Format("2006-01-02T15:04:05Z07:00"))
	if err != nil {
		return fmt.Errorf("append export line: %w", err)
	}
	return nil
}
