package model

import "time"

// ShopSession is an offline access token for one installed shop.
type ShopSession struct {
	Shop        string    `gorm:"primaryKey;size:255" json:"shop"`
	AccessToken string    `gorm:"type:text;not null" json:"-"`
	Scope       string    `gorm:"size:512" json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ShopSession) TableName() string { return "shopify_sessions" }
