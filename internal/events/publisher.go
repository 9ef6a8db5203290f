// Package events publishes catalog import events over NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

const (
	streamName   = "CATALOG_EVENTS"
	subjectBase  = "catalog.import"
	publishLimit = 10 * time.Second
)

// ImportCompletedEvent is emitted after every import run, successful or not.
type ImportCompletedEvent struct {
	EventType        string    `json:"eventType"`
	UserID           string    `json:"userId"`
	Timestamp        time.Time `json:"timestamp"`
	Success          bool      `json:"success"`
	TotalRows        int       `json:"totalRows"`
	ProductsCreated  int       `json:"productsCreated"`
	VariantsCreated  int       `json:"variantsCreated"`
	VariantsUpdated  int       `json:"variantsUpdated"`
	InventoryCreated int       `json:"inventoryCreated"`
	InventoryUpdated int       `json:"inventoryUpdated"`
	ErrorCount       int       `json:"errorCount"`
	ResetCount       *int      `json:"resetCount,omitempty"`
}

// Publisher publishes import lifecycle events to JetStream.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and makes sure the catalog stream exists.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	entry := logger.WithField("component", "catalog-events")

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-import-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishLimit)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"catalog.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
	})
	if err != nil {
		entry.WithError(err).Warn("Failed to ensure catalog stream (may already exist)")
	}

	return &Publisher{nc: nc, js: js, logger: entry}, nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// PublishImportCompleted publishes a catalog.import.completed event. The
// publish runs asynchronously so a slow broker never delays the HTTP response.
func (p *Publisher) PublishImportCompleted(userID string, result *models.ImportResult) {
	event := &ImportCompletedEvent{
		EventType:        "catalog.import.completed",
		UserID:           userID,
		Timestamp:        time.Now().UTC(),
		Success:          result.Success,
		TotalRows:        result.TotalRows,
		ProductsCreated:  result.ProductsCreated,
		VariantsCreated:  result.VariantsCreated,
		VariantsUpdated:  result.VariantsUpdated,
		InventoryCreated: result.InventoryCreated,
		InventoryUpdated: result.InventoryUpdated,
		ErrorCount:       len(result.Errors),
		ResetCount:       result.ProductsResetCount,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishLimit)
		defer cancel()

		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal import event")
			return
		}

		subject := subjectBase + ".completed"
		if _, err := p.js.Publish(ctx, subject, payload); err != nil {
			p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish import event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"subject":    subject,
			"total_rows": event.TotalRows,
			"success":    event.Success,
		}).Debug("Published import event")
	}()
}
