// Package config loads backend credentials for the storage sessions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// DefaultOCIConfigFile is the location the OCI CLI writes its config to.
const DefaultOCIConfigFile = "~/.oci/config"

// LoadOCIConfig loads the OCI configuration from the specified config file path
func LoadOCIConfig(configFilePath string) (common.ConfigurationProvider, error) {
	if configFilePath == "" {
		configFilePath = DefaultOCIConfigFile
	}
	path, err := expandHome(configFilePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("OCI config file %s: %w", path, err)
	}
	provider, err := common.ConfigurationProviderFromFile(path, "DEFAULT")
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	return provider, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
