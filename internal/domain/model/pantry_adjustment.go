package model

import "time"

// 数量変更の理由
type AdjustmentReason string

const (
	//新規作成
	AdjustmentReasonCreate AdjustmentReason = "CREATE"
	//既存アイテムへの追加
	AdjustmentReasonRestock AdjustmentReason = "RESTOCK"
	//1つ減らした
	AdjustmentReasonConsume AdjustmentReason = "CONSUME"
	//最後の1つを消してドキュメント削除
	AdjustmentReasonRemove AdjustmentReason = "REMOVE"
)

//数量変更の履歴

type PantryAdjustment struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID        string           `gorm:"type:varchar(36);not null;index" json:"item_id"`
	Name          string           `gorm:"type:varchar(255);not null" json:"name"`
	Delta         int64            `gorm:"not null" json:"delta"`
	Reason        AdjustmentReason `gorm:"type:varchar(20);not null" json:"reason"`
	QuantityAfter int64            `gorm:"not null" json:"quantity_after"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (PantryAdjustment) TableName() string {
	return "pantry_adjustments"
}
