package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"chatwoot-assignment-balancer/pkg/constants"
)

// Config is the process-wide configuration. Loaded once at startup and
// immutable afterwards; a new process is required to pick up changes.
type Config struct {
	Domain         string
	AccountID      string
	APIToken       string
	PublicAPIKey   string
	TimeoutSeconds int
	Port           string
	LogLevel       string
	PerPage        int
	MaxPages       int
	InstanceID     string

	Assignment AssignmentConfig
}

// AssignmentConfig is the file-backed assignment policy.
type AssignmentConfig struct {
	AutoAssignPriorities []string
	StatusesForLoad      []string
	VerifyTLS            bool
}

func Load() *Config {
	config := &Config{
		Domain:         strings.TrimRight(getEnv(constants.EnvDomain, ""), "/"),
		AccountID:      getEnv(constants.EnvAccountID, ""),
		APIToken:       getEnv(constants.EnvToken, ""),
		TimeoutSeconds: getEnvInt(constants.EnvTimeout, constants.DefaultTimeoutSeconds),
		Port:           getEnv(constants.EnvPort, "7001"),
		LogLevel:       getEnv(constants.EnvLogLevel, "info"),
		PerPage:        getEnvInt(constants.EnvPerPage, constants.DefaultPerPage),
		MaxPages:       getEnvInt(constants.EnvMaxPages, constants.DefaultMaxPages),
		InstanceID:     generateInstanceID(),
		Assignment:     LoadAssignmentConfig(getEnv(constants.EnvConfigPath, constants.DefaultConfigPath)),
	}

	// The public key may differ from the backend token; defaults to it.
	config.PublicAPIKey = getEnv(constants.EnvPublicKey, config.APIToken)

	return config
}

// LoadAssignmentConfig reads the YAML policy file. A missing or
// unparseable file silently yields the defaults.
func LoadAssignmentConfig(path string) AssignmentConfig {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(constants.ConfigKeyAutoAssign, constants.DefaultAutoAssignPriorities())
	v.SetDefault(constants.ConfigKeyStatuses, constants.DefaultStatusesForLoad())
	v.SetDefault(constants.ConfigKeyVerifyTLS, false)

	_ = v.ReadInConfig()

	return AssignmentConfig{
		AutoAssignPriorities: v.GetStringSlice(constants.ConfigKeyAutoAssign),
		StatusesForLoad:      v.GetStringSlice(constants.ConfigKeyStatuses),
		VerifyTLS:            v.GetBool(constants.ConfigKeyVerifyTLS),
	}
}

// TriggersAutoAssign reports whether the given normalized priority key is
// in the auto-assign trigger set. Comparison is case-insensitive.
func (a AssignmentConfig) TriggersAutoAssign(priority string) bool {
	for _, p := range a.AutoAssignPriorities {
		if strings.EqualFold(p, priority) {
			return true
		}
	}
	return false
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func generateInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return uuid.New().String()
	}
	return hostname + "-" + uuid.New().String()[:8]
}
