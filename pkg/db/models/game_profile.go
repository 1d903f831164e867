package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
)

// GameProfile is keyed by the external membership id. ClientID stays empty
// until the anonymous buyer is resolved at checkout.
type GameProfile struct {
	MembershipID string         `gorm:"column:membership_id;primaryKey"`
	Platform     enums.Platform `gorm:"column:platform;type:platform;not null"`
	Username     string         `gorm:"column:username;not null"`
	ClientID     *uuid.UUID     `gorm:"column:client_id;type:uuid"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (GameProfile) TableName() string { return "game_profiles" }

type GameCharacter struct {
	CharacterID    string    `gorm:"column:character_id;primaryKey"`
	MembershipID   string    `gorm:"column:membership_id;not null"`
	CharacterClass string    `gorm:"column:character_class;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (GameCharacter) TableName() string { return "game_characters" }
