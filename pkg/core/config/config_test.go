package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "5m", 5 * time.Minute, false},
		{"complex", "1h30m", 90 * time.Minute, false},
		{"milliseconds", "100ms", 100 * time.Millisecond, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{5 * time.Minute}
	result, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(result) != "5m0s" {
		t.Errorf("MarshalText() = %v, want 5m0s", string(result))
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.General.Name != "taskdir" {
		t.Errorf("General.Name = %v, want taskdir", cfg.General.Name)
	}
	if cfg.General.LogLevel != "info" {
		t.Errorf("General.LogLevel = %v, want info", cfg.General.LogLevel)
	}
	if cfg.General.LogFormat != "text" {
		t.Errorf("General.LogFormat = %v, want text", cfg.General.LogFormat)
	}
	if cfg.Naming.TaskContext != "ControlTasks" {
		t.Errorf("Naming.TaskContext = %v, want ControlTasks", cfg.Naming.TaskContext)
	}
	if cfg.Naming.PageSize != 10 {
		t.Errorf("Naming.PageSize = %v, want 10", cfg.Naming.PageSize)
	}
	if cfg.Naming.InitialBatch != 0 {
		t.Errorf("Naming.InitialBatch = %v, want 0", cfg.Naming.InitialBatch)
	}
	if cfg.Naming.CallTimeout.Duration != 5*time.Second {
		t.Errorf("Naming.CallTimeout = %v, want 5s", cfg.Naming.CallTimeout.Duration)
	}
	if cfg.Naming.Address != "" {
		t.Errorf("Naming.Address = %q, want empty", cfg.Naming.Address)
	}
	if cfg.Transport.MaxRecvMsgSize != 4*1024*1024 {
		t.Errorf("Transport.MaxRecvMsgSize = %v", cfg.Transport.MaxRecvMsgSize)
	}
	if cfg.Transport.KeepaliveInterval.Duration != 30*time.Second {
		t.Errorf("Transport.KeepaliveInterval = %v, want 30s", cfg.Transport.KeepaliveInterval.Duration)
	}
}

func TestConfig_applyDefaults_PreservesValues(t *testing.T) {
	cfg := &Config{
		Naming: NamingConfig{
			TaskContext: "Tasks",
			PageSize:    3,
			CallTimeout: Duration{time.Second},
		},
	}
	cfg.applyDefaults()

	if cfg.Naming.TaskContext != "Tasks" {
		t.Errorf("TaskContext = %v, want Tasks", cfg.Naming.TaskContext)
	}
	if cfg.Naming.PageSize != 3 {
		t.Errorf("PageSize = %v, want 3", cfg.Naming.PageSize)
	}
	if cfg.Naming.CallTimeout.Duration != time.Second {
		t.Errorf("CallTimeout = %v, want 1s", cfg.Naming.CallTimeout.Duration)
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskdir.toml")

	content := `
[general]
log_level = "debug"

[naming]
address = "registry.local:2809"
page_size = 25
call_timeout = "2s"

[transport]
keepalive_interval = "1m"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.LogLevel != "debug" {
		t.Errorf("General.LogLevel = %v, want debug", cfg.General.LogLevel)
	}
	if cfg.Naming.Address != "registry.local:2809" {
		t.Errorf("Naming.Address = %v", cfg.Naming.Address)
	}
	if cfg.Naming.PageSize != 25 {
		t.Errorf("Naming.PageSize = %v, want 25", cfg.Naming.PageSize)
	}
	if cfg.Naming.CallTimeout.Duration != 2*time.Second {
		t.Errorf("Naming.CallTimeout = %v, want 2s", cfg.Naming.CallTimeout.Duration)
	}
	if cfg.Transport.KeepaliveInterval.Duration != time.Minute {
		t.Errorf("Transport.KeepaliveInterval = %v, want 1m", cfg.Transport.KeepaliveInterval.Duration)
	}
	// Defaults still apply to unset fields
	if cfg.Naming.TaskContext != "ControlTasks" {
		t.Errorf("Naming.TaskContext = %v, want ControlTasks", cfg.Naming.TaskContext)
	}
}

func TestLoad_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskdir.yaml")

	content := `
general:
  log_format: json
naming:
  address: "10.0.0.5:2809"
  task_context: Deployed
  initial_batch: 5
  dial_timeout: 750ms
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.LogFormat != "json" {
		t.Errorf("General.LogFormat = %v, want json", cfg.General.LogFormat)
	}
	if cfg.Naming.Address != "10.0.0.5:2809" {
		t.Errorf("Naming.Address = %v", cfg.Naming.Address)
	}
	if cfg.Naming.TaskContext != "Deployed" {
		t.Errorf("Naming.TaskContext = %v, want Deployed", cfg.Naming.TaskContext)
	}
	if cfg.Naming.InitialBatch != 5 {
		t.Errorf("Naming.InitialBatch = %v, want 5", cfg.Naming.InitialBatch)
	}
	if cfg.Naming.DialTimeout.Duration != 750*time.Millisecond {
		t.Errorf("Naming.DialTimeout = %v, want 750ms", cfg.Naming.DialTimeout.Duration)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/taskdir.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	if err := os.WriteFile(configPath, []byte("this is not valid toml [[["), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should return error for invalid TOML")
	}
}

func TestLoad_InvalidPageSize(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "taskdir.toml")

	if err := os.WriteFile(configPath, []byte("[naming]\npage_size = -1\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should reject a negative page size")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("TASKDIR_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKDIR_NAMESERVICE", "env-host:2809")
	t.Setenv("TASKDIR_PAGE_SIZE", "7")

	// Run from an empty directory so no default file is picked up
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Naming.Address != "env-host:2809" {
		t.Errorf("Naming.Address = %v, want env-host:2809", cfg.Naming.Address)
	}
	if cfg.Naming.PageSize != 7 {
		t.Errorf("Naming.PageSize = %v, want 7", cfg.Naming.PageSize)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate: %v", err)
	}

	cfg.Naming.TaskContext = "a/b"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a multi-component task context")
	}
}
