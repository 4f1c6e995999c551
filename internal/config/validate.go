package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. The Google client ID is
// deliberately not required here: conversion-only runs never touch the
// identity provider, and the auth session reports the missing ID itself.
func (c *Config) Validate() error {
	if err := c.validateGoogle(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGoogle() error {
	for _, endpoint := range []struct {
		key   string
		value string
	}{
		{"google.auth_endpoint", c.Google.AuthEndpoint},
		{"google.revoke_endpoint", c.Google.RevokeEndpoint},
	} {
		if err := validateHTTPURL(endpoint.value); err != nil {
			return fmt.Errorf("%s: %w", endpoint.key, err)
		}
	}
	if _, _, err := net.SplitHostPort(c.Google.CallbackBind); err != nil {
		return fmt.Errorf("google.callback_bind: %w", err)
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if err := validateHTTPURL(c.Transcode.RuntimeBaseURL); err != nil {
		return fmt.Errorf("transcode.runtime_base_url: %w", err)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if err := validateHTTPURL(c.Upload.Endpoint); err != nil {
		return fmt.Errorf("upload.endpoint: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// RequireClientID reports a configuration error when no identity provider
// client is configured. Called by publish paths before auth starts.
func (c *Config) RequireClientID() error {
	if strings.TrimSpace(c.Google.ClientID) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clipcast/config.toml"
		}
		return fmt.Errorf("google.client_id is required for publishing. Set GOOGLE_CLIENT_ID env var or edit %s (create with 'clipcast config init')", defaultPath)
	}
	return nil
}

func validateHTTPURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
