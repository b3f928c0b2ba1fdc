package auth

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadAccessConfig reads an AccessConfig from a YAML file. A missing file
// yields an empty AccessConfig (nobody is a superuser, no permission grants
// exist) rather than an error, matching pkg/settings.LoadFrom's fallback
// convention.
func LoadAccessConfig(path string) (*AccessConfig, error) {
	access := &AccessConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return access, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, access); err != nil {
		return nil, err
	}
	return access, nil
}
