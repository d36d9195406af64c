package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	Twilio      *TwilioConfig
	Call        *CallConfig
	Cache       *CacheConfig
	Logger      *LoggerConfig
	Tracer      *TracerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
	// QueueMaxLen bounds each per-recipient offline stream (approximate trim).
	QueueMaxLen int64
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type TwilioConfig struct {
	SID       string
	Token     string
	VerifySID string
}

type CallConfig struct {
	// RingTimeout is how long a call may stay RINGING before the sweep
	// force-fails it with reason TIMEOUT.
	RingTimeout time.Duration
	// SweepInterval is the maintenance loop period.
	SweepInterval time.Duration
}

type CacheConfig struct {
	// PreviewTTL bounds staleness of the contacts-with-preview inbox view.
	PreviewTTL time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}
