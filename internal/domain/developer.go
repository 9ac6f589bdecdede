package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusActive    PaymentStatus = "active"
	PaymentStatusInactive  PaymentStatus = "inactive"
	PaymentStatusSuspended PaymentStatus = "suspended"
)

// DeveloperProfile 在本服务中只读，仅用作授权判断。
type DeveloperProfile struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *DeveloperProfile) CanPublish() bool {
	return p.PaymentStatus == PaymentStatusActive
}
