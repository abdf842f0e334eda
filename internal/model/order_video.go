package model

// OrderVideo maps a platform order to the video assigned to it.
// ID is the platform's order id kept as opaque text.
type OrderVideo struct {
	ID       string `gorm:"primaryKey;type:text;not null" json:"id"`
	VideoURL string `gorm:"column:video_url;type:text;not null" json:"video_url"`
}

func (OrderVideo) TableName() string { return "orders" }
