package models

import "gorm.io/gorm"

// Order keeps only the customer-identifying columns. The rest of the order
// lives with the ordering service and is not read here.
type Order struct {
	gorm.Model
	CustomerID      *uint  `gorm:"index"`
	CustomerName    string `gorm:"default:''"`
	ContactPhone    string `gorm:"default:''"`
	DeliveryAddress string `gorm:"default:''"`
}
