package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Identity is the resolved caller of a core operation: who they are and what
// they may do. Handlers obtain it from the auth middleware and pass it down;
// store operations never see raw credentials.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the trimmed projection embedded in orders and cancellation
// requests.
type UserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
}

type Product struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	ImageURL    string             `json:"imageUrl"`
	Stock       int                `json:"stock"`
	Featured    bool               `json:"featured"`
	OnSale      bool               `json:"onSale"`
	DiscountPct int                `json:"discountPct"`
	CategoryID  *int64             `json:"categoryId"`
	Category    *Category          `json:"category,omitempty"`
	DeletedAt   *time.Time         `json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Variations  []ProductVariation `json:"variations"`
}

type ProductVariation struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Sizes     []VariationSize `json:"sizes"`
}

type VariationSize struct {
	ID          int64           `json:"id"`
	VariationID int64           `json:"variationId"`
	Label       string          `json:"label"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
}

type CartItem struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	ProductID int64    `json:"productId"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// Cart is the full-cart response shape every cart mutation returns.
type Cart struct {
	Items []CartItem `json:"items"`
}

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	OrderNumber string          `json:"orderNumber"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Shipping    json.RawMessage `json:"shipping"`
	CreatedAt   time.Time       `json:"createdAt"`
	Items       []OrderItem     `json:"items"`
	User        *UserSummary    `json:"user,omitempty"`
}

// OrderItem is a write-once snapshot: quantity and unit price are frozen at
// order creation and never track later catalog edits. ProductID goes nil if
// the product is later purged.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID *int64          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

type CancellationRequest struct {
	ID        int64        `json:"id"`
	OrderID   int64        `json:"orderId"`
	UserID    int64        `json:"userId"`
	Reason    *string      `json:"reason"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Order     *Order       `json:"order,omitempty"`
	User      *UserSummary `json:"user,omitempty"`
}

const (
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

const (
	CancellationPending  = "PENDING"
	CancellationRejected = "REJECTED"
	CancellationSuccess  = "SUCCESS"
)

func ValidCancellationStatus(status string) bool {
	switch status {
	case CancellationPending, CancellationRejected, CancellationSuccess:
		return true
	}
	return false
}
