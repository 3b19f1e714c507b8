package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetRedisAddr(); got != DefaultRedisAddr {
		t.Errorf("GetRedisAddr() default = %q, want %q", got, DefaultRedisAddr)
	}
	if got := s.GetRedisDB(); got != DefaultRedisDB {
		t.Errorf("GetRedisDB() default = %d, want %d", got, DefaultRedisDB)
	}
	if got := s.GetListenAddr(); got != DefaultListenAddr {
		t.Errorf("GetListenAddr() default = %q, want %q", got, DefaultListenAddr)
	}
	if got := s.GetAuditLogPath(); filepath.Base(got) != "audit.log" {
		t.Errorf("GetAuditLogPath() default = %q", got)
	}
	if s.DefaultNode != "" {
		t.Errorf("DefaultNode should be empty, got %q", s.DefaultNode)
	}
}

func TestSettings_SetGet(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"default_node", "abc123"},
		{"redis_addr", "10.0.0.1:6379"},
		{"redis_db", "0"},
		{"policy_file", "/etc/netedit/policy.yaml"},
		{"audit_log_path", "/var/log/netedit/audit.log"},
		{"ssh_host", "region1.example.net"},
		{"ssh_user", "netedit"},
		{"listen_addr", ":9090"},
	}
	s := &Settings{}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := s.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%s) error = %v", tt.key, err)
			}
			got, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%s) error = %v", tt.key, err)
			}
			if got != tt.value {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
	if len(tests) != len(Keys) {
		t.Errorf("tested %d keys, Keys has %d", len(tests), len(Keys))
	}
}

func TestSettings_SetErrors(t *testing.T) {
	s := &Settings{}
	if err := s.Set("redis_db", "four"); err == nil {
		t.Error("Set(redis_db, four) should fail")
	}
	if err := s.Set("redis_db", "-1"); err == nil {
		t.Error("Set(redis_db, -1) should fail")
	}
	if err := s.Set("colour", "blue"); err == nil {
		t.Error("Set of an unknown key should fail")
	}
	if _, err := s.Get("colour"); err == nil {
		t.Error("Get of an unknown key should fail")
	}
}

func TestSettings_Unset(t *testing.T) {
	s := &Settings{}
	s.Set("redis_db", "0")
	s.Set("redis_addr", "10.0.0.1:6379")

	if err := s.Unset("redis_db"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unset("redis_addr"); err != nil {
		t.Fatal(err)
	}
	if s.GetRedisDB() != DefaultRedisDB || s.GetRedisAddr() != DefaultRedisAddr {
		t.Errorf("after Unset: db=%d addr=%q, want defaults", s.GetRedisDB(), s.GetRedisAddr())
	}
}

func TestSettings_Clear(t *testing.T) {
	db := 2
	s := &Settings{
		DefaultNode: "abc123",
		RedisAddr:   "10.0.0.1:6379",
		RedisDB:     &db,
		SSHHost:     "jump",
	}

	s.Clear()

	if s.DefaultNode != "" || s.RedisAddr != "" || s.RedisDB != nil || s.SSHHost != "" {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	db := 0
	original := &Settings{
		DefaultNode: "abc123",
		RedisAddr:   "10.0.0.1:6379",
		RedisDB:     &db,
		PolicyFile:  "/etc/netedit/policy.yaml",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.DefaultNode != original.DefaultNode {
		t.Errorf("DefaultNode mismatch: got %q, want %q", loaded.DefaultNode, original.DefaultNode)
	}
	if loaded.RedisAddr != original.RedisAddr {
		t.Errorf("RedisAddr mismatch: got %q, want %q", loaded.RedisAddr, original.RedisAddr)
	}
	if loaded.GetRedisDB() != 0 {
		t.Errorf("RedisDB mismatch: got %d, want 0", loaded.GetRedisDB())
	}
	if loaded.PolicyFile != original.PolicyFile {
		t.Errorf("PolicyFile mismatch: got %q, want %q", loaded.PolicyFile, original.PolicyFile)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/settings.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.DefaultNode != "" || s.RedisAddr != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "nested", "settings.json")

	s := &Settings{DefaultNode: "abc123"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestLoadSave_Home(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file should not error: %v", err)
	}
	if s.DefaultNode != "" {
		t.Error("Load() with non-existent file should return empty settings")
	}

	s.DefaultNode = "saved-node"
	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	expectedPath := filepath.Join(os.Getenv("HOME"), ".netedit", "settings.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Save() did not create file at %s", expectedPath)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if loaded.DefaultNode != "saved-node" {
		t.Errorf("After Save(), DefaultNode = %q, want %q", loaded.DefaultNode, "saved-node")
	}
}

func TestDefaultSettingsPath_NoHome(t *testing.T) {
	t.Setenv("HOME", "")

	path := DefaultSettingsPath()
	if path != "netedit_settings.json" {
		t.Errorf("DefaultSettingsPath() with no HOME = %q, want %q", path, "netedit_settings.json")
	}
}

func TestLoadFrom_ReadError(t *testing.T) {
	dirAsFile := filepath.Join(t.TempDir(), "settings.json")
	if err := os.Mkdir(dirAsFile, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := LoadFrom(dirAsFile); err == nil {
		t.Error("LoadFrom() should error when path is a directory")
	}
}

func TestSaveTo_MkdirError(t *testing.T) {
	blockingFile := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blockingFile, []byte("blocking"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	s := &Settings{DefaultNode: "abc123"}
	if err := s.SaveTo(filepath.Join(blockingFile, "settings.json")); err == nil {
		t.Error("SaveTo() should error when the directory cannot be created")
	}
}
