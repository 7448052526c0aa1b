package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
)

const pgUniqueViolation = "23505"

// MatchRecord is one finished match as stored in Postgres.
type MatchRecord struct {
	Key          string    `gorm:"column:record_key;primaryKey;type:varchar(160)" json:"key"`
	GameRoomCode string    `gorm:"index;type:varchar(16);not null" json:"gameRoomCode"`
	WinningTeam  int       `gorm:"not null" json:"winningTeam"`
	Players      int       `gorm:"not null;default:0" json:"numberOfPlayersJoined"`
	TimeStarted  time.Time `json:"timeStarted"`
	TimeEnded    time.Time `gorm:"index" json:"timeEnded"`
	Document     []byte    `gorm:"type:jsonb;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Postgres is a results.Sink backed by gorm. The bucket names the table.
type Postgres struct {
	db     *gorm.DB
	bucket string
	log    *zap.Logger
}

var _ results.Sink = (*Postgres)(nil)

func OpenPostgres(dsn, bucket string, log *zap.Logger) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p := &Postgres{db: db, bucket: bucket, log: log}
	if err := p.table(context.Background()).AutoMigrate(&MatchRecord{}); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate %s: %w", bucket, err), p.Close())
	}
	return p, nil
}

func (p *Postgres) Bucket() string { return p.bucket }

func (p *Postgres) table(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx).Table(p.bucket)
}

func (p *Postgres) Put(ctx context.Context, key string, doc results.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	rec := MatchRecord{
		Key:          key,
		GameRoomCode: doc.GameRoomCode,
		WinningTeam:  doc.WinningTeam,
		Players:      doc.NumberOfPlayersJoined,
		TimeStarted:  doc.TimeStarted,
		TimeEnded:    doc.TimeEnded,
		Document:     body,
	}
	if err := p.table(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", key, ErrDuplicateKey)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	p.log.Debug("record inserted", zap.String("bucket", p.bucket), zap.String("key", key))
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Get loads a stored document by key.
func (p *Postgres) Get(ctx context.Context, key string) (results.Document, error) {
	var rec MatchRecord
	err := p.table(ctx).Where("record_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return results.Document{}, ErrNotFound
	}
	if err != nil {
		return results.Document{}, err
	}
	var doc results.Document
	if err := json.Unmarshal(rec.Document, &doc); err != nil {
		return results.Document{}, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
