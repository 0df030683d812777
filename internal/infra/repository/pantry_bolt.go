package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andleeb4898/pantry/internal/domain/model"
	repo "github.com/andleeb4898/pantry/internal/repository"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketPantry      = []byte("pantry")
	bucketPantryNames = []byte("pantry_names") // name_key -> id
	bucketAdjustments = []byte("pantry_adjustments")
)

var docJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MigrateBolt はバケットを作る（gormのAutoMigrate相当）。
func MigrateBolt(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPantry, bucketPantryNames, bucketAdjustments} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// bboltをドキュメントストアとして使う実装。
// txがあればそのtxの中で動く（TxManagerBolt経由）。
type PantryBoltRepository struct {
	db  *bolt.DB
	tx  *bolt.Tx
	now func() time.Time
}

func NewPantryBoltRepository(db *bolt.DB) *PantryBoltRepository {
	return &PantryBoltRepository{db: db, now: time.Now}
}

func (r *PantryBoltRepository) List(ctx context.Context) ([]model.PantryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := []model.PantryItem{}
	err := boltView(r.db, r.tx, func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPantry).ForEach(func(_, v []byte) error {
			var it model.PantryItem
			if err := docJSON.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("decode pantry item: %w", err)
			}
			items = append(items, it)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *PantryBoltRepository) FindByID(ctx context.Context, id string) (model.PantryItem, error) {
	if err := ctx.Err(); err != nil {
		return model.PantryItem{}, err
	}
	var it model.PantryItem
	err := boltView(r.db, r.tx, func(tx *bolt.Tx) error {
		var err error
		it, err = getItem(tx, id)
		return err
	})
	return it, err
}

func (r *PantryBoltRepository) FindByNameKey(ctx context.Context, nameKey string) (model.PantryItem, error) {
	if err := ctx.Err(); err != nil {
		return model.PantryItem{}, err
	}
	var it model.PantryItem
	err := boltView(r.db, r.tx, func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketPantryNames).Get([]byte(nameKey))
		if id == nil {
			return repo.ErrNotFound
		}
		var err error
		it, err = getItem(tx, string(id))
		return err
	})
	return it, err
}

func (r *PantryBoltRepository) Create(ctx context.Context, it model.PantryItem) (model.PantryItem, error) {
	if err := ctx.Err(); err != nil {
		return model.PantryItem{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.NameKey == "" {
		it.NameKey = model.NameKey(it.Name)
	}
	now := r.now()
	it.Version = 1
	it.CreatedAt = now
	it.UpdatedAt = now

	err := boltUpdate(r.db, r.tx, func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketPantryNames)
		if names.Get([]byte(it.NameKey)) != nil {
			return repo.ErrDuplicateName
		}
		if err := putItem(tx, it); err != nil {
			return err
		}
		return names.Put([]byte(it.NameKey), []byte(it.ID))
	})
	if err != nil {
		return model.PantryItem{}, err
	}
	return it, nil
}

func (r *PantryBoltRepository) AddQuantity(ctx context.Context, id string, delta int64, image string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return boltUpdate(r.db, r.tx, func(tx *bolt.Tx) error {
		it, err := getItem(tx, id)
		if err != nil {
			return err
		}
		if it.Quantity > math.MaxInt64-delta {
			return repo.ErrQuantityOverflow
		}
		it.Quantity += delta
		if image != "" {
			it.Image = image
		}
		it.Version++
		it.UpdatedAt = r.now()
		return putItem(tx, it)
	})
}

func (r *PantryBoltRepository) DecrementIfMoreThanOne(ctx context.Context, id string, version int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	changed := false
	err := boltUpdate(r.db, r.tx, func(tx *bolt.Tx) error {
		it, err := getItem(tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if it.Quantity <= 1 || it.Version != version {
			return nil
		}
		it.Quantity--
		it.Version++
		it.UpdatedAt = r.now()
		changed = true
		return putItem(tx, it)
	})
	return changed, err
}

func (r *PantryBoltRepository) DeleteIfLastOne(ctx context.Context, id string, version int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	changed := false
	err := boltUpdate(r.db, r.tx, func(tx *bolt.Tx) error {
		it, err := getItem(tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if it.Quantity > 1 || it.Version != version {
			return nil
		}
		if err := tx.Bucket(bucketPantry).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPantryNames).Delete([]byte(it.NameKey)); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func getItem(tx *bolt.Tx, id string) (model.PantryItem, error) {
	raw := tx.Bucket(bucketPantry).Get([]byte(id))
	if raw == nil {
		return model.PantryItem{}, repo.ErrNotFound
	}
	var it model.PantryItem
	if err := docJSON.Unmarshal(raw, &it); err != nil {
		return model.PantryItem{}, fmt.Errorf("decode pantry item %s: %w", id, err)
	}
	// name_keyはJSONに含めないので名前から作り直す
	it.NameKey = model.NameKey(it.Name)
	return it, nil
}

func putItem(tx *bolt.Tx, it model.PantryItem) error {
	raw, err := docJSON.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode pantry item %s: %w", it.ID, err)
	}
	return tx.Bucket(bucketPantry).Put([]byte(it.ID), raw)
}

func boltView(db *bolt.DB, tx *bolt.Tx, fn func(tx *bolt.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	return db.View(fn)
}

func boltUpdate(db *bolt.DB, tx *bolt.Tx, fn func(tx *bolt.Tx) error) error {
	if tx != nil {
		if !tx.Writable() {
			return bolt.ErrTxNotWritable
		}
		return fn(tx)
	}
	return db.Update(fn)
}
