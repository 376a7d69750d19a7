package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moneypilot-backend/pkg/enums"
)

// Account is a tenant's bank or card account. Transactions reference it by
// the text form of ID.
type Account struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    string            `gorm:"column:tenant_id;type:text;not null"`
	Name        string            `gorm:"column:name;type:text;not null"`
	AccountType enums.AccountType `gorm:"column:account_type;type:text;not null"`
	BankName    string            `gorm:"column:bank_name;type:text;not null"`
	Balance     decimal.Decimal   `gorm:"column:balance;type:numeric(14,2);not null"`
	Currency    string            `gorm:"column:currency;type:text;not null;default:'USD'"`
	Nickname    *string           `gorm:"column:nickname;type:text"`
	Description *string           `gorm:"column:description;type:text"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }
