// Package domain defines the collaboration engine's entities. User records
// are owned by the platform's identity service; the engine only reads them
// to resolve display names.
package domain

import "time"

type User struct {
	ID       string `gorm:"type:char(36);primaryKey" json:"id"`
	Username string `gorm:"type:varchar(150);uniqueIndex:idx_username;not null" json:"username"`
	FullName string `gorm:"size:300" json:"full_name,omitempty"`
	Email    string `gorm:"type:varchar(191);index" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
