package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is required (the media upload endpoint)")
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.base_url must be an http or https URL, got %q", c.Server.BaseURL)
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.ProbeURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Network.ProbeURL)
	if err != nil {
		return fmt.Errorf("network.probe_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("network.probe_url must be an http or https URL, got %q", c.Network.ProbeURL)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.WorkerCount > 16 {
		return fmt.Errorf("sync.worker_count %d is too aggressive for field connections (max 16)", c.Sync.WorkerCount)
	}
	if c.Sync.StaleClaimTimeout <= c.Sync.HeartbeatInterval {
		return fmt.Errorf("sync.stale_claim_timeout (%ds) must exceed sync.heartbeat_interval (%ds)",
			c.Sync.StaleClaimTimeout, c.Sync.HeartbeatInterval)
	}
	return nil
}
