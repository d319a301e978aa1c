package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Account is the customer balance an entry moves.
type Account string

const (
	AccountRewards Account = "rewards"
	AccountWallet  Account = "wallet"
)

type SourceType string

const (
	SourceTypeSessionEarn   SourceType = "session_earn"
	SourceTypeExtensionEarn SourceType = "extension_earn"
	SourceTypeSessionRedeem SourceType = "session_redeem"
	SourceTypeSessionWallet SourceType = "session_wallet_debit"
	SourceTypeWalletTopUp   SourceType = "wallet_topup"
)

// Entry is one immutable movement of a customer balance.
// (source_type, source_key) is unique so a posting is applied at most once.
type Entry struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	BranchID   snowflake.ID    `json:"branch_id" gorm:"not null;index"`
	CustomerID snowflake.ID    `json:"customer_id" gorm:"not null;index"`
	Account    Account         `json:"account" gorm:"type:text;not null"`
	SourceType SourceType      `json:"source_type" gorm:"type:text;not null;uniqueIndex:ux_customer_ledger_source,priority:1"`
	SourceKey  string          `json:"source_key" gorm:"type:text;not null;uniqueIndex:ux_customer_ledger_source,priority:2"`
	Points     int64           `json:"points" gorm:"not null;default:0"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:numeric;not null;default:0"`
	OccurredAt time.Time       `json:"occurred_at" gorm:"not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string { return "customer_ledger_entries" }
