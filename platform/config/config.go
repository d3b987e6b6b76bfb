// Package config defines narrow configuration interfaces consumed by the
// platform and domain modules. The concrete loader lives in internal/config;
// modules depend only on the slice of configuration they actually use.
package config

import "time"

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides settings for redis-backed components (asynq, OTP store).
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// LifecycleConfig provides the timing windows enforced by the job
// lifecycle controller. Values are configurable for tests but default to
// the product windows: 45s soft lock, 30m payment, 5m negotiation.
type LifecycleConfig interface {
	GetSoftLockWindow() time.Duration
	GetPaymentWindow() time.Duration
	GetNegotiationWindow() time.Duration
	GetMaxReposts() int
	GetOTPTTL() time.Duration
}

// EscrowConfig provides escrow and payout settings.
type EscrowConfig interface {
	GetCommissionPct() float64
	GetUPIPayeeVPA() string
	GetUPIPayeeName() string
}
