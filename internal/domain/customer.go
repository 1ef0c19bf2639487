package domain

import (
	"time"

	"gorm.io/datatypes"
)

type CreatedVideoRef struct {
	VideoID string `json:"videoId"`
}

// Customer owns the credit counters. Version guards conditional writes.
type Customer struct {
	UserID             string                               `gorm:"column:user_id;type:varchar(128);primaryKey" json:"userId"`
	RedFlags           int                                  `gorm:"column:red_flags;not null;default:0" json:"redFlags"`
	IsBanned           bool                                 `gorm:"column:is_banned;not null;default:false" json:"isBanned"`
	InitialFreeCredits int                                  `gorm:"column:initial_free_credits;not null;default:0" json:"initialFreeCredits"`
	Credits            int                                  `gorm:"column:credits;not null;default:0" json:"credits"`
	VideosCreated      datatypes.JSONSlice[CreatedVideoRef] `gorm:"column:videos_created" json:"videosCreated"`
	Version            int                                  `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt          time.Time                            `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt          time.Time                            `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Customer) TableName() string { return "customer" }

// CanCreateVideo is the admission rule: some credit left and not banned.
func (c *Customer) CanCreateVideo() bool {
	if c == nil || c.IsBanned {
		return false
	}
	return c.InitialFreeCredits >= 1 || c.Credits >= 1
}

// ConsumeCredit takes one free credit, or one paid credit when free ones are
// gone, and records videoID. It never touches both counters.
func (c *Customer) ConsumeCredit(videoID string) (CreditType, bool) {
	if !c.CanCreateVideo() {
		return "", false
	}
	credit := CreditPaid
	if c.InitialFreeCredits >= 1 {
		credit = CreditFree
		c.InitialFreeCredits--
	} else {
		c.Credits--
	}
	c.VideosCreated = append(c.VideosCreated, CreatedVideoRef{VideoID: videoID})
	return credit, true
}
