package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/punctuality"
	"github.com/travigo/busdelay/pkg/util"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "busdelay.yml"

const (
	defaultRemoteURL  = "https://fetchbusservices.onrender.com"
	defaultUserAgent  = "busdelay/1.0"
	defaultListen     = ":8080"
	defaultTimeout    = 15 * time.Second
	defaultRetries    = 3
	defaultSessionTTL = 30 * time.Minute
)

type Config struct {
	Remote      RemoteConfig      `yaml:"remote"`
	API         APIConfig         `yaml:"api"`
	Punctuality PunctualityConfig `yaml:"punctuality"`
}

type RemoteConfig struct {
	BaseURL    string   `yaml:"base_url" validate:"required,url"`
	Timeout    Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int      `yaml:"max_retries" validate:"gte=0,lte=10"`
	UserAgent  string   `yaml:"user_agent"`
}

type APIConfig struct {
	Listen     string   `yaml:"listen" validate:"required"`
	SessionTTL Duration `yaml:"session_ttl" validate:"gt=0"`
}

type PunctualityConfig struct {
	Rules []punctuality.Rule `yaml:"rules" validate:"dive"`
}

func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:    defaultRemoteURL,
			Timeout:    Duration{defaultTimeout},
			MaxRetries: defaultRetries,
			UserAgent:  defaultUserAgent,
		},
		API: APIConfig{
			Listen:     defaultListen,
			SessionTTL: Duration{defaultSessionTTL},
		},
		Punctuality: PunctualityConfig{
			Rules: append([]punctuality.Rule(nil), punctuality.DefaultRules...),
		},
	}
}

// Load reads the YAML file at path (or $BUSDELAY_CONFIG, or busdelay.yml),
// applies BUSDELAY_* environment overrides and validates the result. Only an
// explicitly requested file is required to exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	env := util.GetEnvironmentVariables()

	explicit := path != ""
	if !explicit && env["BUSDELAY_CONFIG"] != "" {
		path = env["BUSDELAY_CONFIG"]
		explicit = true
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded configuration file")
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		log.Debug().Str("path", path).Msg("No configuration file, using defaults")
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnvironment(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvironment(env map[string]string) error {
	if env["BUSDELAY_REMOTE_URL"] != "" {
		c.Remote.BaseURL = env["BUSDELAY_REMOTE_URL"]
	}

	if env["BUSDELAY_REMOTE_TIMEOUT"] != "" {
		timeout, err := ParseDuration(env["BUSDELAY_REMOTE_TIMEOUT"])
		if err != nil {
			return fmt.Errorf("BUSDELAY_REMOTE_TIMEOUT: %w", err)
		}
		c.Remote.Timeout = Duration{timeout}
	}

	if env["BUSDELAY_REMOTE_RETRIES"] != "" {
		retries, err := strconv.Atoi(env["BUSDELAY_REMOTE_RETRIES"])
		if err != nil {
			return fmt.Errorf("BUSDELAY_REMOTE_RETRIES: %w", err)
		}
		c.Remote.MaxRetries = retries
	}

	if env["BUSDELAY_LISTEN"] != "" {
		c.API.Listen = env["BUSDELAY_LISTEN"]
	}

	if env["BUSDELAY_SESSION_TTL"] != "" {
		ttl, err := ParseDuration(env["BUSDELAY_SESSION_TTL"])
		if err != nil {
			return fmt.Errorf("BUSDELAY_SESSION_TTL: %w", err)
		}
		c.API.SessionTTL = Duration{ttl}
	}

	return nil
}

func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Duration); ok {
			return int64(d.Duration)
		}
		return nil
	}, Duration{})

	return v.Struct(c)
}
