package worker

// alert_worker.go
// Processes stock alert jobs from QueueStockAlert and e-mails the barn.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender is satisfied by *infra.Mailer.
type Sender interface {
	Send(to []string, subject, body string) error
}

type StockAlertWorker struct {
	sender Sender
	to     []string
}

// NewStockAlertWorker takes the comma separated ALERT_EMAIL_TO list.
func NewStockAlertWorker(sender Sender, to string) *StockAlertWorker {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &StockAlertWorker{sender: sender, to: recipients}
}

// Process sends one alert. An unconfigured mailer or an empty recipient list
// drops the alert with a warning; only delivery errors are retried.
func (w *StockAlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var alert dto.StockAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil
	}
	if len(w.to) == 0 {
		log.Warn().Str("record_id", alert.RecordID).Msg("alert_worker: no recipients configured, skipping")
		return nil
	}

	err := w.sender.Send(w.to, alertSubject(alert), alertBody(alert))
	if errors.Is(err, infra.ErrMailerDisabled) {
		log.Warn().Str("record_id", alert.RecordID).Msg("alert_worker: smtp not configured, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("alert_worker: send: %w", err)
	}
	log.Info().Str("record_id", alert.RecordID).Str("status", alert.Status).Msg("alert_worker: stock alert sent")
	return nil
}

func alertSubject(a dto.StockAlert) string {
	if a.Status == "out_of_stock" {
		return fmt.Sprintf("Out of stock: %s", a.Name)
	}
	return fmt.Sprintf("Running low: %s", a.Name)
}

func alertBody(a dto.StockAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is now %s.\n\n", a.Name, strings.ReplaceAll(a.Status, "_", " "))
	fmt.Fprintf(&b, "Current stock: %s %s\n", a.CurrentStock.String(), a.UnitType)
	if a.ReorderPoint != nil {
		fmt.Fprintf(&b, "Reorder point: %s %s\n", a.ReorderPoint.String(), a.UnitType)
	}
	fmt.Fprintf(&b, "\nBarn: %s\nSupply: %s\n", a.BarnID, a.RecordID)
	return b.String()
}
