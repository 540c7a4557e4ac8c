package messaging

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/hilthontt/encore/internal/infrastructure/configs"
)

const (
	DefaultRetryAttempts = 10
	DefaultRetryDelay    = 5 * time.Second
	DefaultDialTimeout   = 10 * time.Second
	DefaultHeartbeat     = 10 * time.Second
	DefaultConcurrency   = 16
)

type Options struct {
	Protocol string
	Host     string
	Port     int
	Username string
	Password string
	Vhost    string

	Heartbeat      time.Duration
	DialTimeout    time.Duration
	Prefetch       int
	PublishTimeout time.Duration

	RetryAttempts uint
	RetryDelay    time.Duration

	// DeadLetterExchange, when set, is attached to every declared queue.
	DeadLetterExchange string
	Concurrency        int
}

func NewOptions() *Options {
	return &Options{
		Protocol:      "amqp",
		Host:          "localhost",
		Port:          5672,
		Username:      "guest",
		Password:      "guest",
		Vhost:         "/",
		Heartbeat:     DefaultHeartbeat,
		DialTimeout:   DefaultDialTimeout,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
		Concurrency:   DefaultConcurrency,
	}
}

func OptionsFromConfig(cfg configs.BrokerConfig) *Options {
	opts := NewOptions()
	opts.Protocol = cfg.Protocol
	opts.Host = cfg.Host
	opts.Port = cfg.Port
	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.Vhost = cfg.Vhost
	opts.Prefetch = cfg.Prefetch
	opts.PublishTimeout = cfg.PublishTimeout
	opts.DeadLetterExchange = cfg.DeadLetterExchange

	if cfg.Heartbeat > 0 {
		opts.Heartbeat = cfg.Heartbeat
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.RetryAttempts > 0 {
		opts.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		opts.RetryDelay = cfg.RetryDelay
	}
	if cfg.Consumer.Concurrency > 0 {
		opts.Concurrency = cfg.Consumer.Concurrency
	}
	return opts
}

// URL builds the AMQP URI. The vhost is percent-encoded, so "/" becomes "%2F".
func (o *Options) URL() string {
	protocol := o.Protocol
	if protocol == "" {
		protocol = "amqp"
	}

	host := net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	user := url.UserPassword(o.Username, o.Password).String()

	return fmt.Sprintf("%s://%s@%s/%s", protocol, user, host, url.PathEscape(o.Vhost))
}

// Redacted is URL with the password masked, safe for logs.
func (o *Options) Redacted() string {
	u, err := url.Parse(o.URL())
	if err != nil {
		return o.Host
	}
	return u.Redacted()
}
