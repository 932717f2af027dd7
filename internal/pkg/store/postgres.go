package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

// Postgres upserts offers keyed by their content-derived id. Because ids are
// deterministic, re-running the pipeline against unchanged disclosures
// rewrites the same rows, and the fingerprint column tells consumers whether
// the source document actually changed between runs.
type Postgres struct {
	conn   *pgx.Conn
	logger *zap.Logger
}

func NewPostgres(conn *pgx.Conn, logger *zap.Logger) *Postgres {
	return &Postgres{conn: conn, logger: logger}
}

const upsertOfferSQL = `
	INSERT INTO offers (id, bank_id, bank_name, product_type, currency_index,
	                    segment, channel, rate, conditions, source, generated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		rate = EXCLUDED.rate,
		conditions = EXCLUDED.conditions,
		source = EXCLUDED.source,
		generated_at = EXCLUDED.generated_at`

const insertRankingsSQL = `
	INSERT INTO rankings (generated_at, scenarios) VALUES ($1, $2)`

func (p *Postgres) SaveDataset(ctx context.Context, offers model.OffersDataset, rankings model.Rankings) error {
	batch := &pgx.Batch{}
	for _, o := range offers.Offers {
		rate, err := json.Marshal(o.Rate)
		if err != nil {
			return fmt.Errorf("failed to marshal rate for offer %s: %w", o.ID, err)
		}
		conditions, err := json.Marshal(o.Conditions)
		if err != nil {
			return fmt.Errorf("failed to marshal conditions for offer %s: %w", o.ID, err)
		}
		source, err := json.Marshal(o.Source)
		if err != nil {
			return fmt.Errorf("failed to marshal source for offer %s: %w", o.ID, err)
		}

		batch.Queue(upsertOfferSQL,
			o.ID, o.BankID, o.BankName, string(o.ProductType), string(o.CurrencyIndex),
			string(o.Segment), string(o.Channel), rate, conditions, source, offers.GeneratedAt)
	}

	scenarios, err := json.Marshal(rankings.Scenarios)
	if err != nil {
		return fmt.Errorf("failed to marshal rankings: %w", err)
	}
	batch.Queue(insertRankingsSQL, rankings.GeneratedAt, scenarios)

	results := p.conn.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}

	p.logger.Info("dataset upserted", zap.Int("offers", len(offers.Offers)))
	return nil
}
