package repository

import (
	"context"

	repo "github.com/andleeb4898/pantry/internal/repository"

	bolt "go.etcd.io/bbolt"
)

type txReposBolt struct {
	pantry      *PantryBoltRepository
	adjustments *AdjustmentBoltRepository
}

func (r *txReposBolt) Pantry() repo.PantryRepository           { return r.pantry }
func (r *txReposBolt) Adjustments() repo.AdjustmentRepository { return r.adjustments }

// bboltは書き込みtxが1本だけなので、fnの中は直列に動く。
type TxManagerBolt struct {
	db *bolt.DB
}

func NewTxManagerBolt(db *bolt.DB) *TxManagerBolt {
	return &TxManagerBolt{db: db}
}

func (tm *TxManagerBolt) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tm.db.Update(func(tx *bolt.Tx) error {
		p := NewPantryBoltRepository(tm.db)
		p.tx = tx
		a := NewAdjustmentBoltRepository(tm.db)
		a.tx = tx
		return fn(&txReposBolt{pantry: p, adjustments: a})
	})
}
