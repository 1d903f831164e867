package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
)

// User is an authenticated account. Boosters are users with a booster profile.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;not null;uniqueIndex"`
	Username  string          `gorm:"column:username;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:actor_role;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }

type Booster struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Username  string    `gorm:"column:username;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Booster) TableName() string { return "boosters" }
