package config

import "fmt"

func LoadConfigFromFile(filePath string, appConfig any) error {
	configSource, err := newFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to create File config source: %v", err)
	}

	if err := Load(configSource, appConfig); err != nil {
		return fmt.Errorf("error loading config: %v", err)
	}
	return nil
}
