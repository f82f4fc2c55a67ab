package models

import "time"

// Monitor is an email account under observation by the check engine (§3).
// It generalizes the teacher's EmailConfig+EmailLog split into the single
// aggregate the spec names, carrying both auth material and run counters.
type Monitor struct {
	ID          string `json:"id" gorm:"primaryKey"`
	OwnerUserID string `json:"owner_user_id" gorm:"not null;index"`

	EmailAddress string `json:"email_address" gorm:"not null"`
	MailboxName  string `json:"mailbox_name" gorm:"not null;default:inbox"`

	IMAPHost string `json:"imap_host" gorm:"not null"`
	IMAPPort int    `json:"imap_port" gorm:"default:993"`

	// AuthMethod is "password" or "oauth2". EncryptedPassword and the OAuth
	// token set are mutually exclusive in practice but both columns exist so
	// a monitor can be reconfigured from one auth method to the other.
	AuthMethod        string  `json:"auth_method" gorm:"not null;default:password"`
	EncryptedPassword *string `json:"-"`

	OAuthAccessToken  *string    `json:"-"`
	OAuthRefreshToken *string    `json:"-"`
	OAuthExpiresAt    *time.Time `json:"oauth_expires_at"`

	RequireInvoiceKeywords bool `json:"require_invoice_keywords" gorm:"not null;default:false"`
	IsActive               bool `json:"is_active" gorm:"not null;default:true"`

	EmailsProcessedCount int     `json:"emails_processed_count" gorm:"not null;default:0"`
	InvoicesCreatedCount int     `json:"invoices_created_count" gorm:"not null;default:0"`
	LastCheckedAt        *time.Time `json:"last_checked_at"`
	LastError            *string `json:"last_error"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Monitor) TableName() string { return "email_monitors" }

// MonitorLock is the advisory mutex preventing concurrent check() calls
// against one monitor (§3, §4.C1 locking protocol).
type MonitorLock struct {
	MonitorID     string    `json:"monitor_id" gorm:"primaryKey"`
	Owner         string    `json:"owner"`
	LockedAt      time.Time `json:"locked_at"`
	LockExpiresAt time.Time `json:"lock_expires_at"`
}

func (MonitorLock) TableName() string { return "email_monitor_locks" }
