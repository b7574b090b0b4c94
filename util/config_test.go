package util

import (
	"os"
	"testing"
)

func TestConfigConstants(t *testing.T) {
	if Name != "clubspace" {
		t.Errorf("Expected Name 'clubspace', got '%s'", Name)
	}

	if ConfigFileName != "config.yaml" {
		t.Errorf("Expected ConfigFileName 'config.yaml', got '%s'", ConfigFileName)
	}
}

func TestReadConfWithYaml(t *testing.T) {
	yamlContent := `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  mediaDir: media
  closed: true
`
	err := os.WriteFile("config.yaml", []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	if config.Conf.Host != "127.0.0.1" {
		t.Errorf("Expected Host '127.0.0.1', got '%s'", config.Conf.Host)
	}

	if config.Conf.SshPort != 23232 {
		t.Errorf("Expected SshPort 23232, got %d", config.Conf.SshPort)
	}

	if config.Conf.HttpPort != 9999 {
		t.Errorf("Expected HttpPort 9999, got %d", config.Conf.HttpPort)
	}

	if config.Conf.MediaDir != "media" {
		t.Errorf("Expected MediaDir 'media', got '%s'", config.Conf.MediaDir)
	}

	if !config.Conf.Closed {
		t.Error("Expected Closed to be true")
	}
}

func TestReadConfWithEnvOverrides(t *testing.T) {
	yamlContent := `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  mediaDir: media
  closed: false
`
	err := os.WriteFile("config.yaml", []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	os.Setenv("CLUBSPACE_HOST", "192.168.1.1")
	os.Setenv("CLUBSPACE_SSHPORT", "2222")
	os.Setenv("CLUBSPACE_HTTPPORT", "8080")
	os.Setenv("CLUBSPACE_MEDIADIR", "/var/media")
	os.Setenv("CLUBSPACE_CLOSED", "true")

	defer func() {
		os.Unsetenv("CLUBSPACE_HOST")
		os.Unsetenv("CLUBSPACE_SSHPORT")
		os.Unsetenv("CLUBSPACE_HTTPPORT")
		os.Unsetenv("CLUBSPACE_MEDIADIR")
		os.Unsetenv("CLUBSPACE_CLOSED")
	}()

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	// Environment variables should override YAML values
	if config.Conf.Host != "192.168.1.1" {
		t.Errorf("Expected Host '192.168.1.1' from env, got '%s'", config.Conf.Host)
	}

	if config.Conf.SshPort != 2222 {
		t.Errorf("Expected SshPort 2222 from env, got %d", config.Conf.SshPort)
	}

	if config.Conf.HttpPort != 8080 {
		t.Errorf("Expected HttpPort 8080 from env, got %d", config.Conf.HttpPort)
	}

	if config.Conf.MediaDir != "/var/media" {
		t.Errorf("Expected MediaDir '/var/media' from env, got '%s'", config.Conf.MediaDir)
	}

	if !config.Conf.Closed {
		t.Error("Expected Closed to be true from env")
	}
}

func TestReadConfMissingFileUsesDefaults(t *testing.T) {
	os.Remove("config.yaml")

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf should fall back to embedded defaults, got: %v", err)
	}

	if config.Conf.SshPort == 0 {
		t.Error("Embedded defaults should set a ssh port")
	}
	if config.Conf.HttpPort == 0 {
		t.Error("Embedded defaults should set a http port")
	}
}

func TestReadConfInvalidYaml(t *testing.T) {
	invalidYaml := `
conf:
  host: 127.0.0.1
  sshPort: not_a_number
  invalid yaml structure
`
	err := os.WriteFile("config.yaml", []byte(invalidYaml), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	_, err = ReadConf()
	if err == nil {
		t.Error("Expected error when parsing invalid YAML")
	}
}

func TestReadConfClosedFalseEnv(t *testing.T) {
	yamlContent := `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  closed: true
`
	err := os.WriteFile("config.yaml", []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	defer os.Remove("config.yaml")

	// Anything but "true" leaves the YAML value alone
	os.Setenv("CLUBSPACE_CLOSED", "false")
	defer os.Unsetenv("CLUBSPACE_CLOSED")

	config, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	if !config.Conf.Closed {
		t.Error("Expected Closed to stay true from YAML when env is not 'true'")
	}
}
