package common

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const (
	// ConfigPathEnv points at a YAML or JSON file overlaid on the defaults
	ConfigPathEnv = "CONFIG_PATH"
	// ConfigJSONEnv holds an inline JSON document overlaid last
	ConfigJSONEnv = "CONFIG_JSON"
)

//go:embed config.default.yaml
var defaultConfig []byte

// ConfigManager loads a typed configuration from the embedded defaults,
// an optional file and an optional inline JSON override, in that order.
type ConfigManager[T any] struct {
	kf     *koanf.Koanf
	config T
}

func NewConfigManager[T any]() (*ConfigManager[T], error) {
	cm := &ConfigManager[T]{kf: koanf.New(".")}

	if err := cm.kf.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cm.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if raw := os.Getenv(ConfigJSONEnv); raw != "" {
		if err := cm.kf.Load(rawbytes.Provider([]byte(raw)), json.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", ConfigJSONEnv, err)
		}
	}

	if err := cm.unmarshal(); err != nil {
		return nil, err
	}

	return cm, nil
}

// LoadFile overlays a config file and re-decodes the typed config.
func (cm *ConfigManager[T]) LoadFile(path string) error {
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}

	if err := cm.kf.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("loaded config file")
	return cm.unmarshal()
}

func (cm *ConfigManager[T]) unmarshal() error {
	var config T
	err := cm.kf.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "key",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &config,
			WeaklyTypedInput: true,
			TagName:          "key",
		},
	})
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	cm.config = config
	return nil
}

// GetConfig returns a copy of the decoded configuration
func (cm *ConfigManager[T]) GetConfig() T {
	return cm.config
}
