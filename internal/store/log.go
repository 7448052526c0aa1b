package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
)

// Log writes every record to the logger and nowhere else.
type Log struct {
	bucket string
	log    *zap.Logger
}

var _ results.Sink = (*Log)(nil)

func NewLog(bucket string, log *zap.Logger) *Log {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{bucket: bucket, log: log}
}

func (l *Log) Bucket() string { return l.bucket }

func (l *Log) Put(ctx context.Context, key string, doc results.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.log.Info("match record",
		zap.String("bucket", l.bucket),
		zap.String("key", key),
		zap.String("code", doc.GameRoomCode),
		zap.Int("winning_team", doc.WinningTeam),
		zap.Int("players", doc.NumberOfPlayersJoined),
		zap.Any("team_a", doc.TeamAPlayers),
		zap.Any("team_b", doc.TeamBPlayers))
	return nil
}

func (l *Log) Close() error { return nil }
