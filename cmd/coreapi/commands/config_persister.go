package commands

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ConfigPersister implements auth.TokenPersister over the CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateAccessToken stores the access token and its expiry. An empty token
// removes both.
func (p *ConfigPersister) UpdateAccessToken(token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	config.AccessToken = token
	config.TokenExpiresAt = nil

	if token != "" && !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	err := saveConfigStruct(config)
	if err != nil {
		return err
	}

	viper.Set("access_token", config.AccessToken)

	if config.TokenExpiresAt != nil {
		viper.Set("token_expires_at", *config.TokenExpiresAt)
	} else {
		viper.Set("token_expires_at", time.Time{})
	}

	return nil
}
