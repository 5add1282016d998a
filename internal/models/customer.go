package models

type Customer struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Firstname    string `gorm:"not null" json:"firstname"`
	Lastname     string `gorm:"not null" json:"lastname"`
	Phone        string `gorm:"not null" json:"phone"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsAdmin      bool   `gorm:"default:false" json:"is_admin"`
}
