package models

// TopCategory and FeaturedBrand back the storefront's promotional listings.
type TopCategory struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Imageurl string `json:"imageurl"`
}

type FeaturedBrand struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Imageurl string `json:"imageurl"`
}
