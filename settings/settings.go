// Package settings translates the persisted configuration into explicit
// values that get passed into constructors. Nothing below the command
// layer reads viper directly.
package settings

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/bedrockmgr/bedrockmgr/core"
	"github.com/bedrockmgr/bedrockmgr/transfer"
)

// TargetType selects the transfer backend kind.
type TargetType string

const (
	TargetLocal TargetType = "local"
	TargetSFTP  TargetType = "sftp"
)

// Target describes where the server lives. It is decoded once from the
// config file and handed to whatever needs it.
type Target struct {
	Type TargetType `mapstructure:"type"`

	// ServerPath is the server root for local targets.
	ServerPath string `mapstructure:"server-path"`

	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	KeyFile        string `mapstructure:"key-file"`
	RemotePath     string `mapstructure:"remote-path"`
	TimeoutSeconds int    `mapstructure:"timeout"`
}

// LoadTarget decodes the target section of the config file.
func LoadTarget() (Target, error) {
	t := Target{Type: TargetLocal}
	raw := viper.GetStringMap("target")
	if len(raw) == 0 {
		return t, nil
	}
	if err := mapstructure.Decode(raw, &t); err != nil {
		return t, fmt.Errorf("invalid target configuration: %w", err)
	}
	if t.Type == "" {
		t.Type = TargetLocal
	}
	return t, nil
}

// Save writes the target back to the config file.
func (t Target) Save() error {
	viper.Set("target.type", string(t.Type))
	viper.Set("target.server-path", t.ServerPath)
	viper.Set("target.host", t.Host)
	viper.Set("target.port", t.Port)
	viper.Set("target.username", t.Username)
	viper.Set("target.password", t.Password)
	viper.Set("target.key-file", t.KeyFile)
	viper.Set("target.remote-path", t.RemotePath)
	viper.Set("target.timeout", t.TimeoutSeconds)
	return writeConfig()
}

// SFTPConfig converts the target to transfer connection parameters.
func (t Target) SFTPConfig() transfer.SFTPConfig {
	return transfer.SFTPConfig{
		Host:           t.Host,
		Port:           t.Port,
		Username:       t.Username,
		Password:       t.Password,
		KeyFile:        t.KeyFile,
		RemotePath:     t.RemotePath,
		ConnectTimeout: time.Duration(t.TimeoutSeconds) * time.Second,
	}
}

// Backend builds the transfer backend for this target.
func (t Target) Backend() (transfer.Backend, error) {
	switch t.Type {
	case TargetSFTP:
		return transfer.NewSFTP(t.SFTPConfig()), nil
	case TargetLocal, "":
		return transfer.NewLocal(t.ServerPath), nil
	}
	return nil, fmt.Errorf("unknown target type %q", t.Type)
}

// LastKnownEngineVersion returns the cached server engine version, used
// for compatibility checks while the server is unreachable.
func LastKnownEngineVersion() (core.Version, bool) {
	s := viper.GetString("last-known-engine-version")
	if s == "" {
		return core.Version{}, false
	}
	v, err := core.ParseVersionString(s)
	if err != nil {
		return core.Version{}, false
	}
	return v, true
}

// SetLastKnownEngineVersion updates the cached engine version.
func SetLastKnownEngineVersion(v core.Version) error {
	viper.Set("last-known-engine-version", v.String())
	return writeConfig()
}

// DefaultPackUUIDs is the set of pack ids that ship with the server.
func DefaultPackUUIDs() map[string]bool {
	set := make(map[string]bool)
	for _, id := range viper.GetStringSlice("default-pack-uuids") {
		set[id] = true
	}
	return set
}

func writeConfig() error {
	if err := viper.WriteConfig(); err != nil {
		// First save: no config file exists yet.
		return viper.SafeWriteConfig()
	}
	return nil
}
