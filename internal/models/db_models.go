package models

import "gorm.io/gorm"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// OperationRecord 操作历史表，每次提交一条
type OperationRecord struct {
	gorm.Model
	OperationID string `gorm:"uniqueIndex;size:36"`
	Kind        string `gorm:"index;size:16"`
	Owner       string `gorm:"index;size:44"` // 连接钱包地址
	Mint        string `gorm:"size:44"`
	Counterpart string `gorm:"size:44"` // recipient or delegate
	Amount      uint64 // base units
	TXSignature string `gorm:"size:88"`
	Status      string `gorm:"size:20;default:'pending'"` // "pending", "confirmed", "failed", "rejected"
	Reason      string `gorm:"size:512"`
}
