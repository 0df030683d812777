package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	bolt "go.etcd.io/bbolt"
)

type AdjustmentBoltRepository struct {
	db  *bolt.DB
	tx  *bolt.Tx
	now func() time.Time
}

func NewAdjustmentBoltRepository(db *bolt.DB) *AdjustmentBoltRepository {
	return &AdjustmentBoltRepository{db: db, now: time.Now}
}

func (r *AdjustmentBoltRepository) Create(ctx context.Context, adj model.PantryAdjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return boltUpdate(r.db, r.tx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAdjustments)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		adj.ID = int64(seq)
		if adj.CreatedAt.IsZero() {
			adj.CreatedAt = r.now()
		}
		raw, err := docJSON.Marshal(adj)
		if err != nil {
			return fmt.Errorf("encode adjustment: %w", err)
		}
		return b.Put(seqKey(seq), raw)
	})
}

// 新しい順に走査する
func (r *AdjustmentBoltRepository) List(ctx context.Context, filter repo.AdjustmentFilter) ([]model.PantryAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := repo.NormalizeLimit(filter.Limit)
	out := []model.PantryAdjustment{}

	err := boltView(r.db, r.tx, func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAdjustments).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var adj model.PantryAdjustment
			if err := docJSON.Unmarshal(v, &adj); err != nil {
				return fmt.Errorf("decode adjustment: %w", err)
			}
			if filter.ItemID != "" && adj.ItemID != filter.ItemID {
				continue
			}
			out = append(out, adj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
