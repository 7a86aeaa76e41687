// Package events provides NATS event publishing for stockledger-service
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"stockledger-service/internal/ledger"
	"stockledger-service/internal/models"
)

const (
	streamName    = "STOCK"
	streamSubject = "stock.>"

	subjectAdjusted   = "stock.adjusted"
	subjectLowStock   = "stock.low_stock"
	subjectOutOfStock = "stock.out_of_stock"
)

// stockEvent is the wire form of a status-change notification
type stockEvent struct {
	ItemID        string             `json:"itemId"`
	SKU           string             `json:"sku"`
	OldStatus     models.StockStatus `json:"oldStatus"`
	NewStatus     models.StockStatus `json:"newStatus"`
	Quantity      float64            `json:"quantity"`
	TransactionID string             `json:"transactionId"`
	AlertLevel    string             `json:"alertLevel"`
	AlertMessage  string             `json:"alertMessage,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

// StockEventPublisher publishes ledger status-change events to NATS
// JetStream so UI clients can refresh row highlighting and warning banners
// without polling. It implements ledger.Notifier.
type StockEventPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

var _ ledger.Notifier = (*StockEventPublisher)(nil)

// NewStockEventPublisher connects to NATS and ensures the stock stream
// exists.
func NewStockEventPublisher(natsURL string, logger *logrus.Logger) (*StockEventPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("stockledger-service-publisher"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(streamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{streamSubject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to ensure stock stream exists")
		}
	}

	return &StockEventPublisher{
		nc:     nc,
		js:     js,
		logger: log.WithField("component", "stock-events"),
	}, nil
}

// StockAdjusted publishes a stock.adjusted event, plus a low-stock or
// out-of-stock alert when the adjustment moved the item into a worse band.
// Publish failures are logged, never propagated: event delivery is
// best-effort and must not fail the committed adjustment.
func (p *StockEventPublisher) StockAdjusted(ctx context.Context, event ledger.StatusChangeEvent) {
	p.publish(ctx, subjectAdjusted, buildEvent(event, "info", ""))

	if event.NewStatus == event.OldStatus {
		return
	}
	switch event.NewStatus {
	case models.StockStatusOutOfStock:
		msg := fmt.Sprintf("Out of stock: %s is now out of stock", event.SKU)
		p.publish(ctx, subjectOutOfStock, buildEvent(event, "critical", msg))
	case models.StockStatusCritical, models.StockStatusLow, models.StockStatusWarning:
		msg := fmt.Sprintf("Low stock alert: %s has %.3f remaining (%s)", event.SKU, event.Quantity, event.NewStatus)
		p.publish(ctx, subjectLowStock, buildEvent(event, "warning", msg))
	}
}

func buildEvent(event ledger.StatusChangeEvent, level, message string) stockEvent {
	return stockEvent{
		ItemID:        event.ItemID.String(),
		SKU:           event.SKU,
		OldStatus:     event.OldStatus,
		NewStatus:     event.NewStatus,
		Quantity:      event.Quantity,
		TransactionID: event.TransactionID.String(),
		AlertLevel:    level,
		AlertMessage:  message,
		OccurredAt:    time.Now(),
	}
}

func (p *StockEventPublisher) publish(ctx context.Context, subject string, event stockEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal stock event")
		return
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"itemId":  event.ItemID,
			"sku":     event.SKU,
		}).WithError(err).Error("Failed to publish stock event")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"subject":   subject,
		"itemId":    event.ItemID,
		"sku":       event.SKU,
		"newStatus": event.NewStatus,
	}).Info("Published stock event")
}

// IsConnected returns true if connected to NATS
func (p *StockEventPublisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close closes the NATS connection
func (p *StockEventPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
