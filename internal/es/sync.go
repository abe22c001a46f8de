package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
)

// Syncer mirrors product documents, including the live shelf count, into the
// search index. It is driven by product_events so storefront search reflects
// availability shortly after every reservation, release and reap.
type Syncer struct {
	DB    *gorm.DB
	ES    *elasticsearch.Client
	Index string
	Log   *slog.Logger
}

type productEvent struct {
	Type      string    `json:"type"`
	ProductID uuid.UUID `json:"product_id"`
}

func (s *Syncer) Handle(ctx context.Context, m kafka.Message) error {
	var ev productEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		s.Log.Error("malformed product event dropped", "offset", m.Offset, "error", err)
		return nil
	}
	if ev.ProductID == uuid.Nil {
		return nil
	}

	var product models.Product
	err := s.DB.WithContext(ctx).First(&product, "id = ?", ev.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.deleteDoc(ctx, ev.ProductID)
	}
	if err != nil {
		return err
	}
	return s.indexDoc(ctx, product)
}

func (s *Syncer) indexDoc(ctx context.Context, product models.Product) error {
	body, err := json.Marshal(product)
	if err != nil {
		return err
	}

	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(body),
		s.ES.Index.WithDocumentID(product.ID.String()),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es index %s: %w", product.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", product.ID, res.Status())
	}
	return nil
}

func (s *Syncer) deleteDoc(ctx context.Context, id uuid.UUID) error {
	res, err := s.ES.Delete(
		s.Index,
		id.String(),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es delete %s: %w", id, err)
	}
	defer res.Body.Close()
	// 404 is fine, the document was never indexed
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete %s: %s", id, res.Status())
	}
	return nil
}
