// Package catalog holds the tenant-scoped product and service inventory
// the sales/orders subflows search and present. New relative to spec.md's
// distilled scope (SPEC_FULL.md DOMAIN STACK); modeled on the teacher's
// GORM repository shape in workspace/repository/workspace_gorm.go.
package catalog

import "time"

type Product struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"not null;index:idx_catalog_tenant"`
	SKU         string `gorm:"not null;uniqueIndex:idx_catalog_tenant_sku"`
	Name        string `gorm:"not null"`
	Description string
	CategoryTag string `gorm:"index"`
	ImageURL    string
	Active      bool `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}

// ProductVariant is the orderable unit — a Product always has at least one.
type ProductVariant struct {
	ID          string `gorm:"primaryKey"`
	ProductID   string `gorm:"not null;index"`
	TenantID    string `gorm:"not null;index:idx_catalog_tenant"`
	Label       string `gorm:"not null"`
	PriceCents  int64  `gorm:"not null"`
	Currency    string `gorm:"not null;default:'KES'"`
	StockCount  int    `gorm:"default:0"`
	Unlimited   bool   `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (v ProductVariant) InStock(qty int) bool {
	return v.Unlimited || v.StockCount >= qty
}

// Service is a bookable offering (as opposed to a shippable Product).
type Service struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Description string
	Active      bool `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Variants []ServiceVariant `gorm:"foreignKey:ServiceID"`
}

type ServiceVariant struct {
	ID           string `gorm:"primaryKey"`
	ServiceID    string `gorm:"not null;index"`
	TenantID     string `gorm:"not null;index"`
	Label        string `gorm:"not null"`
	PriceCents   int64  `gorm:"not null"`
	Currency     string `gorm:"not null;default:'KES'"`
	DurationMins int    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityWindow is one bookable slot for a ServiceVariant.
type AvailabilityWindow struct {
	ID               string `gorm:"primaryKey"`
	TenantID         string `gorm:"not null;index"`
	ServiceVariantID string `gorm:"not null;index"`
	StartsAt         time.Time
	EndsAt           time.Time
	CapacityTotal    int `gorm:"default:1"`
	CapacityBooked   int `gorm:"default:0"`
}

func (w AvailabilityWindow) HasCapacity() bool {
	return w.CapacityBooked < w.CapacityTotal
}

type AppointmentStatus string

const (
	AppointmentBooked    AppointmentStatus = "booked"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

type Appointment struct {
	ID                   string `gorm:"primaryKey"`
	TenantID             string `gorm:"not null;index"`
	CustomerID           string `gorm:"not null;index"`
	AvailabilityWindowID string `gorm:"not null;index"`
	Status               AppointmentStatus `gorm:"not null;default:'booked'"`
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
