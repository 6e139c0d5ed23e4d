package models

import "time"

// Production - one day's cooking for one school. TotalKg is derived:
// starch + vegetables, recomputed on every create/update.
type Production struct {
	ID                 uint `gorm:"primaryKey"`
	WeekID             uint `gorm:"index;not null"`
	Week               Week
	SchoolID           uint `gorm:"index;not null"`
	School             School
	ProductionDate     time.Time `gorm:"index;not null"`
	StarchKg           float64   `gorm:"not null"`
	VegetablesKg       float64   `gorm:"not null"`
	TotalKg            float64   `gorm:"not null"`
	StarchPortionPerKg float64   `gorm:"not null"`
	VegPortionPerKg    float64   `gorm:"not null"`
	Beneficiaries      int       `gorm:"not null"`
	CreatedBy          uint      `gorm:"index;not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
