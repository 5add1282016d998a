package models

type Product struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"not null" json:"name"`
	Imageurl string  `json:"imageurl"`
	Price    float64 `gorm:"not null" json:"price"`
	Category string  `gorm:"index;not null" json:"category"`
	Details  string  `json:"details"`
	Weight   string  `json:"weight"`
}
