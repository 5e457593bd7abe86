package model

type User struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	Username       string `gorm:"not null;size:191;uniqueIndex" json:"username"`
	Email          string `gorm:"not null;size:191;uniqueIndex" json:"email"`
	HashedPassword string `gorm:"not null" json:"-"`
	IsActive       bool   `gorm:"not null;default:true" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}
