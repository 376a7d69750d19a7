package models

import "time"

// Category is a tenant's spending category. ID is the slug stored in
// transactions.category_id.
type Category struct {
	TenantID  string    `gorm:"column:tenant_id;type:text;primaryKey"`
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Color     string    `gorm:"column:color;type:text;not null"`
	Icon      string    `gorm:"column:icon;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Category) TableName() string { return "categories" }
