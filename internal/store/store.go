// Package store holds the durable sinks match records are written to.
package store

import "errors"

var (
	ErrDuplicateKey = errors.New("record key already stored")
	ErrNotFound     = errors.New("not found")
)

const DefaultBucket = "match_records"
