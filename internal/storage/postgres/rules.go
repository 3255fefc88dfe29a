package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

const (
	conditionsTable = "rule_conditions"
	discountsTable  = "rule_discounts"
)

var (
	_ discount.ConditionStore = (*Store[discount.ConditionRecord])(nil)
	_ discount.DiscountStore  = (*Store[discount.DiscountRecord])(nil)
)

// Store implements discount.Store on a table of (id, store_id, payload)
// rows, the payload holding the JSON-encoded record.
type Store[R discount.Record] struct {
	pool  *pgxpool.Pool
	kind  string
	codec Codec[R]

	upsertSQL  string
	findSQL    string
	deleteSQL  string
	listSQL    string
	existsSQL  string
	countSQL   string
	byStoreSQL string
}

// NewStore returns a Store over table using codec for payloads.
func NewStore[R discount.Record](pool *pgxpool.Pool, table, kind string, codec Codec[R]) *Store[R] {
	return &Store[R]{
		pool:  pool,
		kind:  kind,
		codec: codec,

		upsertSQL: fmt.Sprintf(`INSERT INTO %s (id, store_id, payload) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET store_id = EXCLUDED.store_id, payload = EXCLUDED.payload, updated_at = now()`, table),
		findSQL:    fmt.Sprintf(`SELECT id, store_id, payload FROM %s WHERE id = $1`, table),
		deleteSQL:  fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table),
		listSQL:    fmt.Sprintf(`SELECT id, store_id, payload FROM %s ORDER BY id`, table),
		existsSQL:  fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table),
		countSQL:   fmt.Sprintf(`SELECT count(*) FROM %s`, table),
		byStoreSQL: fmt.Sprintf(`SELECT id, store_id, payload FROM %s WHERE store_id = $1 ORDER BY id`, table),
	}
}

// NewConditionStore returns the condition record store.
func NewConditionStore(pool *pgxpool.Pool) *Store[discount.ConditionRecord] {
	return NewStore(pool, conditionsTable, discount.KindCondition, ConditionCodec)
}

// NewDiscountStore returns the discount record store.
func NewDiscountStore(pool *pgxpool.Pool) *Store[discount.DiscountRecord] {
	return NewStore(pool, discountsTable, discount.KindDiscount, DiscountCodec)
}

func (s *Store[R]) Save(ctx context.Context, r R) error {
	if r.RecordID() == "" {
		return discount.Invalidf("%s id is required", s.kind)
	}
	var e jx.Encoder
	s.codec.Encode(&e, r)

	if _, err := s.pool.Exec(ctx, s.upsertSQL, r.RecordID(), r.RecordStoreID(), e.Bytes()); err != nil {
		return fmt.Errorf("saving %s %q: %w", s.kind, r.RecordID(), err)
	}
	return nil
}

func (s *Store[R]) FindByID(ctx context.Context, id string) (R, error) {
	var zero R
	rows, err := s.pool.Query(ctx, s.findSQL, id)
	if err != nil {
		return zero, fmt.Errorf("getting %s %q: %w", s.kind, id, err)
	}

	r, err := pgx.CollectExactlyOneRow(rows, s.scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, &discount.NotFoundError{Kind: s.kind, ID: id}
		}
		return zero, fmt.Errorf("getting %s %q: %w", s.kind, id, err)
	}
	return r, nil
}

func (s *Store[R]) DeleteByID(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, s.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", s.kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return &discount.NotFoundError{Kind: s.kind, ID: id}
	}
	return nil
}

func (s *Store[R]) FindAll(ctx context.Context) ([]R, error) {
	rows, err := s.pool.Query(ctx, s.listSQL)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", s.kind, err)
	}
	return pgx.CollectRows(rows, s.scan)
}

func (s *Store[R]) ExistsByID(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, s.existsSQL, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking %s %q: %w", s.kind, id, err)
	}
	return ok, nil
}

func (s *Store[R]) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, s.countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s records: %w", s.kind, err)
	}
	return n, nil
}

func (s *Store[R]) FindByStore(ctx context.Context, storeID string) ([]R, error) {
	rows, err := s.pool.Query(ctx, s.byStoreSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing %s records of store %q: %w", s.kind, storeID, err)
	}
	return pgx.CollectRows(rows, s.scan)
}

func (s *Store[R]) scan(row pgx.CollectableRow) (R, error) {
	var (
		zero    R
		id      string
		storeID string
		payload []byte
	)
	if err := row.Scan(&id, &storeID, &payload); err != nil {
		return zero, err
	}
	r, err := s.codec.Decode(jx.DecodeBytes(payload), id, storeID)
	if err != nil {
		return zero, fmt.Errorf("decoding %s %q: %w", s.kind, id, err)
	}
	return r, nil
}
