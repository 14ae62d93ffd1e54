package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ReferralCode string    `db:"referral_code" json:"referral_code"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PendingRegistration stages signup intent until payment clears. It is
// keyed by a one-time token, never by the eventual user id, and is deleted
// when promoted or expired.
type PendingRegistration struct {
	Token        string    `db:"token" json:"token"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	ReferredBy   string    `db:"referred_by" json:"referred_by"`
	Tier         string    `db:"tier" json:"tier"`
	PasswordHash string    `db:"password_hash" json:"-"`
	PaymentRef   string    `db:"payment_ref" json:"payment_ref"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

// Payment statuses are monotonic: pending -> success -> completed, or
// pending -> failed. A completed record is terminal and must never be
// re-processed for side effects.
const (
	PaymentPending   = "pending"
	PaymentSuccess   = "success"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type PaymentRecord struct {
	Reference   string     `db:"reference" json:"reference"`
	UserID      *string    `db:"user_id" json:"user_id,omitempty"`
	Purpose     string     `db:"purpose" json:"purpose"`
	Amount      int64      `db:"amount" json:"amount"`
	Currency    string     `db:"currency" json:"currency"`
	Status      string     `db:"status" json:"status"`
	Metadata    string     `db:"metadata" json:"metadata"`
	RawPayload  string     `db:"raw_payload" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// MembershipAccount carries the tier benefit snapshot taken at activation.
// The snapshot is immutable history: global tier config edits never rewrite
// an activated membership.
type MembershipAccount struct {
	UserID          string     `db:"user_id" json:"user_id"`
	Tier            string     `db:"tier" json:"tier"`
	SecurityFee     int64      `db:"security_fee" json:"security_fee"`
	RefundableFee   int64      `db:"refundable_fee" json:"refundable_fee"`
	AdminFee        int64      `db:"admin_fee" json:"admin_fee"`
	LoanLimit       int64      `db:"loan_limit" json:"loan_limit"`
	InvestmentLimit int64      `db:"investment_limit" json:"investment_limit"`
	CommissionRate  string     `db:"commission_rate" json:"commission_rate"`
	ActivatedAt     time.Time  `db:"activated_at" json:"activated_at"`
	UpgradedAt      *time.Time `db:"upgraded_at" json:"upgraded_at,omitempty"`
}

type WalletAccount struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Available int64     `db:"available" json:"available"`
	Locked    int64     `db:"locked" json:"locked"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type ReferralEntry struct {
	ID         string    `db:"id" json:"id"`
	ReferrerID string    `db:"referrer_id" json:"referrer_id"`
	ReferredID string    `db:"referred_id" json:"referred_id"`
	Commission int64     `db:"commission" json:"commission"`
	PaymentRef string    `db:"payment_ref" json:"payment_ref"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
