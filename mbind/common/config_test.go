package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.PrimaryTimeout != 10*time.Second {
		t.Errorf("PrimaryTimeout = %v", cfg.PrimaryTimeout)
	}
	if cfg.SecondaryTimeout != time.Second {
		t.Errorf("SecondaryTimeout = %v", cfg.SecondaryTimeout)
	}
	if cfg.DeviceDetectTimeout != 15*time.Second {
		t.Errorf("DeviceDetectTimeout = %v", cfg.DeviceDetectTimeout)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s", cfg.Port)
	}
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
AppName: "TestApp"
SecondaryTimeout: 1500ms
StoreFile: "store/devices.yaml"
`)
	if err := os.WriteFile(file, content, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9090")
	t.Setenv("METABIND_PRIMARYTIMEOUT", "20s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.BoolP("debug", "d", false, "")
	if err := flags.Parse([]string{"-d"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(file, flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"AppName", cfg.AppName, "TestApp"},
		{"SecondaryTimeout", cfg.SecondaryTimeout, 1500 * time.Millisecond},
		{"StoreFile", cfg.StoreFile, "store/devices.yaml"},
		{"Port", cfg.Port, "9090"},
		{"PrimaryTimeout", cfg.PrimaryTimeout, 20 * time.Second},
		{"DebugOutput", cfg.DebugOutput, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(file, []byte("AppName: [ broken"), 0644)
	if _, err := LoadConfig(file, nil); err == nil {
		t.Error("Expected error for malformed config")
	}
}
