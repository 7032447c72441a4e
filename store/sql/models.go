package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type settingRecord struct {
	bun.BaseModel `bun:"table:esign_settings,alias:es"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:esign_webhook_events,alias:ewe"`

	ID         string    `bun:"id,pk"`
	StorageKey string    `bun:"storage_key,notnull"`
	Payload    []byte    `bun:"payload,notnull"`
	Writes     int       `bun:"writes,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
