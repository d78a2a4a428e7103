package dto

import (
	"time"

	"github.com/GlebRadaev/smswallet/internal/domain"
)

type RedeemRequestDTO struct {
	Code string `json:"code" validate:"required,max=64" example:"4539578763621486"`
}

type CreateCouponRequestDTO struct {
	Code      string     `json:"code" validate:"max=64" example:"WELCOME10"`
	Value     string     `json:"value" validate:"required,numeric" example:"10.00"`
	MaxUses   int        `json:"max_uses" validate:"required,gte=1" example:"100"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" example:"2024-12-31T23:59:59Z"`
}

type CouponDTO struct {
	Code      string     `json:"code" example:"WELCOME10"`
	Value     string     `json:"value" example:"10.00"`
	MaxUses   int        `json:"max_uses" example:"100"`
	UsesUsed  int        `json:"uses_used" example:"3"`
	Active    bool       `json:"active" example:"true"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type BlacklistRequestDTO struct {
	UserID   string `json:"user_id" validate:"required,max=64" example:"123456789"`
	Reason   string `json:"reason" validate:"required,max=255" example:"chargeback abuse"`
	Duration string `json:"duration,omitempty" example:"72h"`
}

type BlacklistEntryDTO struct {
	UserID    string     `json:"user_id" example:"123456789"`
	Reason    string     `json:"reason" example:"chargeback abuse"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type RankingEntryDTO struct {
	UserID  string `json:"user_id" example:"123456789"`
	Balance string `json:"balance" example:"250.00"`
}

func NewCouponDTO(coupon *domain.Coupon) CouponDTO {
	return CouponDTO{
		Code:      coupon.Code,
		Value:     coupon.Value.StringFixed(2),
		MaxUses:   coupon.MaxUses,
		UsesUsed:  coupon.UsesUsed,
		Active:    coupon.Active,
		ExpiresAt: coupon.ExpiresAt,
		CreatedAt: coupon.CreatedAt,
	}
}

func NewBlacklistEntryDTO(entry *domain.BlacklistEntry) BlacklistEntryDTO {
	return BlacklistEntryDTO{
		UserID:    entry.UserID,
		Reason:    entry.Reason,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	}
}
