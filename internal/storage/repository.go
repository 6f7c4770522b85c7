package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertUserSQL = `INSERT INTO users (
        chat_id,
        username,
        first_name
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (chat_id) DO UPDATE
    SET username   = EXCLUDED.username,
        first_name = EXCLUDED.first_name,
        updated_at = now();`

	incrementCalcCountSQL = `UPDATE users
    SET calc_count = calc_count + 1, updated_at = now()
    WHERE chat_id = $1
    RETURNING calc_count;`

	getUserSQL = `SELECT
        chat_id,
        username,
        first_name,
        calc_count,
        created_at,
        updated_at
    FROM users
    WHERE chat_id = $1;`

	insertQuoteSQL = `INSERT INTO quotes (
        source,
        listing_id,
        title,
        age_bracket,
        displacement_cc,
        price_krw,
        total_krw,
        total_usd,
        total_rub,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    );`

	listRecentQuotesSQL = `SELECT
        id,
        source,
        listing_id,
        title,
        age_bracket,
        displacement_cc,
        price_krw,
        total_krw,
        total_usd,
        total_rub,
        created_at
    FROM quotes
    ORDER BY created_at DESC
    LIMIT $1;`

	countQuotesSQL = `SELECT COUNT(*) FROM quotes;`

	insertRateSampleSQL = `INSERT INTO rate_samples (
        fetched_at,
        usd_krw,
        usd_rub,
        krw_rub,
        usdt_krw
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (fetched_at) DO NOTHING;`

	listRateSamplesBetweenSQL = `SELECT
        id,
        fetched_at,
        usd_krw,
        usd_rub,
        krw_rub,
        usdt_krw,
        created_at
    FROM rate_samples
    WHERE fetched_at >= $1
      AND fetched_at < $2
    ORDER BY fetched_at;`

	listRecentRateSamplesSQL = `SELECT
        id,
        fetched_at,
        usd_krw,
        usd_rub,
        krw_rub,
        usdt_krw,
        created_at
    FROM rate_samples
    ORDER BY fetched_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// UserStore defines operations for chat user persistence.
type UserStore interface {
	UpsertUser(ctx context.Context, user User) error
	IncrementCalcCount(ctx context.Context, chatID int64) (int64, error)
	GetUser(ctx context.Context, chatID int64) (User, error)
}

// QuoteStore defines operations for quote history persistence.
type QuoteStore interface {
	InsertQuote(ctx context.Context, record QuoteRecord) error
	ListRecentQuotes(ctx context.Context, limit int) ([]QuoteRecord, error)
	CountQuotes(ctx context.Context) (int64, error)
}

// RateHistoryStore defines operations for rate snapshot persistence.
type RateHistoryStore interface {
	InsertRateSample(ctx context.Context, record RateRecord) error
	ListRateSamplesBetween(ctx context.Context, from, to time.Time) ([]RateRecord, error)
	ListRecentRateSamples(ctx context.Context, limit int) ([]RateRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to users, quotes and rate history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertUser creates or refreshes a chat user row.
func (s *Store) UpsertUser(ctx context.Context, user User) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertUserSQL, user.ChatID, user.Username, user.FirstName); execErr != nil {
		return fmt.Errorf("upsert user: %w", execErr)
	}
	return nil
}

// IncrementCalcCount bumps a user's calculation counter and returns the new value.
func (s *Store) IncrementCalcCount(ctx context.Context, chatID int64) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, incrementCalcCountSQL, chatID).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("increment calc count: %w", scanErr)
	}
	return count, nil
}

// GetUser loads one chat user by chat id.
func (s *Store) GetUser(ctx context.Context, chatID int64) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	var user User
	if scanErr := pool.QueryRow(ctx, getUserSQL, chatID).Scan(
		&user.ChatID,
		&user.Username,
		&user.FirstName,
		&user.CalcCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	); scanErr != nil {
		return User{}, fmt.Errorf("get user: %w", scanErr)
	}
	return user, nil
}

// InsertQuote persists a finished calculation.
func (s *Store) InsertQuote(ctx context.Context, record QuoteRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var listingID interface{}
	if record.ListingID != nil {
		listingID = *record.ListingID
	}

	_, execErr := pool.Exec(ctx, insertQuoteSQL,
		record.Source,
		listingID,
		record.Title,
		record.AgeBracket,
		record.DisplacementCC,
		record.PriceKRW.String(),
		record.TotalKRW.String(),
		record.TotalUSD.String(),
		record.TotalRUB.String(),
		record.CreatedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert quote: %w", execErr)
	}
	return nil
}

// ListRecentQuotes lists the most recent calculations.
func (s *Store) ListRecentQuotes(ctx context.Context, limit int) ([]QuoteRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentQuotesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent quotes: %w", queryErr)
	}
	defer rows.Close()

	records := make([]QuoteRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanQuoteRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountQuotes counts stored calculations.
func (s *Store) CountQuotes(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countQuotesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count quotes: %w", scanErr)
	}
	return count, nil
}

// InsertRateSample persists a rate snapshot.
func (s *Store) InsertRateSample(ctx context.Context, record RateRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertRateSampleSQL,
		record.FetchedAt,
		record.USDToKRW.String(),
		record.USDToRUB.String(),
		record.KRWToRUB.String(),
		record.USDTToKRW.String(),
	)
	if execErr != nil {
		return fmt.Errorf("insert rate sample: %w", execErr)
	}
	return nil
}

// ListRateSamplesBetween lists snapshots within a time window.
func (s *Store) ListRateSamplesBetween(ctx context.Context, from, to time.Time) ([]RateRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRateSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list rate samples between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RateRecord, 0)
	for rows.Next() {
		record, scanErr := scanRateRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListRecentRateSamples lists the most recent snapshots ordered newest first.
func (s *Store) ListRecentRateSamples(ctx context.Context, limit int) ([]RateRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRateSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent rate samples: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RateRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanRateRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanQuoteRecord(rows pgx.Rows) (QuoteRecord, error) {
	var (
		record    QuoteRecord
		listingID sql.NullInt64
		priceStr  string
		krwStr    string
		usdStr    string
		rubStr    string
	)

	if err := rows.Scan(
		&record.ID,
		&record.Source,
		&listingID,
		&record.Title,
		&record.AgeBracket,
		&record.DisplacementCC,
		&priceStr,
		&krwStr,
		&usdStr,
		&rubStr,
		&record.CreatedAt,
	); err != nil {
		return QuoteRecord{}, err
	}

	if listingID.Valid {
		value := listingID.Int64
		record.ListingID = &value
	}

	var err error
	if record.PriceKRW, err = decimal.NewFromString(priceStr); err != nil {
		return QuoteRecord{}, fmt.Errorf("parse price krw: %w", err)
	}
	if record.TotalKRW, err = decimal.NewFromString(krwStr); err != nil {
		return QuoteRecord{}, fmt.Errorf("parse total krw: %w", err)
	}
	if record.TotalUSD, err = decimal.NewFromString(usdStr); err != nil {
		return QuoteRecord{}, fmt.Errorf("parse total usd: %w", err)
	}
	if record.TotalRUB, err = decimal.NewFromString(rubStr); err != nil {
		return QuoteRecord{}, fmt.Errorf("parse total rub: %w", err)
	}

	return record, nil
}

func scanRateRecord(rows pgx.Rows) (RateRecord, error) {
	var (
		record  RateRecord
		usdKRW  string
		usdRUB  string
		krwRUB  string
		usdtKRW string
	)

	if err := rows.Scan(
		&record.ID,
		&record.FetchedAt,
		&usdKRW,
		&usdRUB,
		&krwRUB,
		&usdtKRW,
		&record.CreatedAt,
	); err != nil {
		return RateRecord{}, err
	}

	var err error
	if record.USDToKRW, err = decimal.NewFromString(usdKRW); err != nil {
		return RateRecord{}, fmt.Errorf("parse usd_krw: %w", err)
	}
	if record.USDToRUB, err = decimal.NewFromString(usdRUB); err != nil {
		return RateRecord{}, fmt.Errorf("parse usd_rub: %w", err)
	}
	if record.KRWToRUB, err = decimal.NewFromString(krwRUB); err != nil {
		return RateRecord{}, fmt.Errorf("parse krw_rub: %w", err)
	}
	if record.USDTToKRW, err = decimal.NewFromString(usdtKRW); err != nil {
		return RateRecord{}, fmt.Errorf("parse usdt_krw: %w", err)
	}

	return record, nil
}
