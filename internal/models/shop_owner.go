package models

import (
	"time"

	"gorm.io/gorm"
)

// ShopOwner is the store account. Refresh tokens are kept as hashed rows,
// looked up by their public token id.
type ShopOwner struct {
	gorm.Model
	StoreID       string                  `gorm:"size:64;uniqueIndex;not null"`
	Name          string                  `gorm:"not null"`
	Email         string                  `gorm:"uniqueIndex;not null"`
	PasswordHash  string                  `gorm:"not null" json:"-"`
	EmailVerified bool                    `gorm:"default:false"`
	Latitude      *float64                `json:"latitude"`
	Longitude     *float64                `json:"longitude"`
	RefreshTokens []ShopOwnerRefreshToken `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// HasLocation reports whether a reference location was recorded.
func (o *ShopOwner) HasLocation() bool {
	return o.Latitude != nil && o.Longitude != nil
}

type ShopOwnerRefreshToken struct {
	ID          uint      `gorm:"primaryKey"`
	ShopOwnerID uint      `gorm:"index;not null"`
	TokenID     string    `gorm:"size:64;uniqueIndex;not null"`
	TokenHash   string    `gorm:"size:64;not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
}
