package models

import (
	"time"
)

type User struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"not null"                 json:"name"`
	Email             string    `gorm:"unique;not null"          json:"email"`
	PasswordHash      string    `gorm:"not null"                 json:"-"`
	Role              string    `gorm:"not null;default:user"    json:"role"`
	AvatarKey         string    `json:"-"`
	AvatarURL         string    `json:"avatar_url"`
	ResetTokenHash    string    `json:"-"`
	ResetTokenExpires int64     `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Category struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title string `gorm:"unique;not null"          json:"title"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string  `gorm:"not null"                 json:"title"`
	Description string  `gorm:"not null"                 json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	InStock     uint    `json:"inStock"`
	PosterKey   string  `json:"-"`
	PosterURL   string  `json:"poster_url"`
	CategoryID  uint    `gorm:"index"                    json:"category"`
}

type FeaturedProduct struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null"     json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is written once by the payment webhook. Only DeliveryStatus is ever
// updated afterwards.
type Order struct {
	ID              uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint        `gorm:"index"                    json:"user_id"`
	CustomerID      string      `json:"customer_id"`
	PaymentIntentID string      `gorm:"uniqueIndex"              json:"payment_intent_id"`
	Products        []OrderItem `gorm:"foreignKey:OrderID"       json:"products"`
	SubTotal        int64       `json:"subTotal"`
	Total           int64       `gorm:"not null"                 json:"total"`
	ShippingJSON    string      `json:"shipping"`
	PaymentStatus   string      `gorm:"not null"                 json:"payment_status"`
	DeliveryStatus  string      `gorm:"not null;default:pending" json:"delivery_status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// OrderItem is a frozen copy of a product line at checkout time, never a
// live reference into the catalog.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     uint    `gorm:"index;not null"           json:"-"`
	ProductRef  string  `json:"product_ref"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	InStock     uint    `json:"inStock"`
	PosterURL   string  `json:"poster_url"`
	Quantity    uint    `gorm:"default:1"                json:"quantity"`
}

type Subscriber struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"unique;not null"          json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
