package config

import "time"

// Interface getters so *Config satisfies the platform/config interfaces.

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetSoftLockWindow() time.Duration    { return c.SoftLockWindow }
func (c *Config) GetPaymentWindow() time.Duration     { return c.PaymentWindow }
func (c *Config) GetNegotiationWindow() time.Duration { return c.NegotiationWindow }
func (c *Config) GetMaxReposts() int                  { return c.MaxReposts }
func (c *Config) GetOTPTTL() time.Duration            { return c.OTPTTL }

func (c *Config) GetCommissionPct() float64 { return c.CommissionPct }
func (c *Config) GetUPIPayeeVPA() string    { return c.UPIPayeeVPA }
func (c *Config) GetUPIPayeeName() string   { return c.UPIPayeeName }
