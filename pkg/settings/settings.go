// Package settings manages persistent user settings for the netedit CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultNode is the node to edit when -N is not specified
	DefaultNode string `json:"default_node,omitempty"`

	// RedisAddr is the host:port of the Redis holding node state
	RedisAddr string `json:"redis_addr,omitempty"`

	// RedisDB selects the Redis database; nil means DefaultRedisDB
	RedisDB *int `json:"redis_db,omitempty"`

	// PolicyFile is the YAML permission policy; empty allows everything
	PolicyFile string `json:"policy_file,omitempty"`

	// AuditLogPath overrides the default audit log location
	AuditLogPath string `json:"audit_log_path,omitempty"`

	// SSHHost and SSHUser tunnel the Redis connection through SSH
	SSHHost string `json:"ssh_host,omitempty"`
	SSHUser string `json:"ssh_user,omitempty"`

	// ListenAddr is where `netedit serve` listens
	ListenAddr string `json:"listen_addr,omitempty"`
}

// Defaults used when a setting is unset.
const (
	DefaultRedisAddr  = "localhost:6379"
	DefaultRedisDB    = 4
	DefaultListenAddr = "127.0.0.1:8080"
)

// Keys lists the settings names accepted by Set, Get and Unset.
var Keys = []string{
	"default_node", "redis_addr", "redis_db", "policy_file",
	"audit_log_path", "ssh_host", "ssh_user", "listen_addr",
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netedit_settings.json"
	}
	return filepath.Join(home, ".netedit", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetRedisAddr returns the Redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return DefaultRedisAddr
}

// GetRedisDB returns the Redis database (with fallback)
func (s *Settings) GetRedisDB() int {
	if s.RedisDB != nil {
		return *s.RedisDB
	}
	return DefaultRedisDB
}

// GetListenAddr returns the API listen address (with fallback)
func (s *Settings) GetListenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return DefaultListenAddr
}

// GetAuditLogPath returns the audit log path (with fallback next to the
// settings file)
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return filepath.Join(filepath.Dir(DefaultSettingsPath()), "audit.log")
}

// Set assigns one setting by key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "default_node":
		s.DefaultNode = value
	case "redis_addr":
		s.RedisAddr = value
	case "redis_db":
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			return fmt.Errorf("redis_db must be a non-negative integer, got %q", value)
		}
		s.RedisDB = &db
	case "policy_file":
		s.PolicyFile = value
	case "audit_log_path":
		s.AuditLogPath = value
	case "ssh_host":
		s.SSHHost = value
	case "ssh_user":
		s.SSHUser = value
	case "listen_addr":
		s.ListenAddr = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Get returns the effective value of one setting, defaults included.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "default_node":
		return s.DefaultNode, nil
	case "redis_addr":
		return s.GetRedisAddr(), nil
	case "redis_db":
		return strconv.Itoa(s.GetRedisDB()), nil
	case "policy_file":
		return s.PolicyFile, nil
	case "audit_log_path":
		return s.GetAuditLogPath(), nil
	case "ssh_host":
		return s.SSHHost, nil
	case "ssh_user":
		return s.SSHUser, nil
	case "listen_addr":
		return s.GetListenAddr(), nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// Unset clears one setting back to its default.
func (s *Settings) Unset(key string) error {
	if key == "redis_db" {
		s.RedisDB = nil
		return nil
	}
	return s.Set(key, "")
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
