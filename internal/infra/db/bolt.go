package db

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// OpenBolt はローカルのbboltファイルを開く（無ければ作る）。
func OpenBolt(path string) (*bolt.DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return bdb, nil
}
