package kafkaconsumer

import "time"

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	// key prefixes purged for every applied event
	Prefixes []string
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = "storefront-catalog-changes"
	}
	if c.GroupID == "" {
		c.GroupID = "storefront-cache-invalidator"
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	return c
}
