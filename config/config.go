package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Controller Controller `mapstructure:"controller" yaml:"controller" validate:"required"`
	Loop       Loop       `mapstructure:"loop" yaml:"loop" validate:"required"`
	Simulation Simulation `mapstructure:"simulation" yaml:"simulation" validate:"required"`
	Logging    Logging    `mapstructure:"logging" yaml:"logging" validate:"required"`
	API        API        `mapstructure:"api" yaml:"api" validate:"required"`
}

type Controller struct {
	Kp *float64 `mapstructure:"kp" yaml:"kp" validate:"required"`
	Ki *float64 `mapstructure:"ki" yaml:"ki" validate:"required"`
	Kd *float64 `mapstructure:"kd" yaml:"kd" validate:"required"`
	// IntegralLimit is a pointer as the integral is unclamped if it is nil.
	IntegralLimit *float64 `mapstructure:"integralLimit" yaml:"integralLimit,omitempty" validate:"omitempty,gte=0"`
}

type Loop struct {
	Setpoint *float64 `mapstructure:"setpoint" yaml:"setpoint" validate:"required"`
	// SamplePeriod is in seconds.
	SamplePeriod       *float64 `mapstructure:"samplePeriod" yaml:"samplePeriod" validate:"required,gt=0"`
	CycleTimeCollector *string  `mapstructure:"cycleTimeCollector" yaml:"cycleTimeCollector" validate:"required,oneof=tachymeter array"`
	CycleTimeWindow    *int     `mapstructure:"cycleTimeWindow" yaml:"cycleTimeWindow" validate:"required,gt=0"`
}

type Simulation struct {
	Plant        *string  `mapstructure:"plant" yaml:"plant" validate:"required,oneof=boiler motor"`
	InitialValue *float64 `mapstructure:"initialValue" yaml:"initialValue" validate:"required"`
	Loops        *int     `mapstructure:"loops" yaml:"loops" validate:"required,gt=0"`
	// NoiseStdDev adds truncated normal noise of up to three standard
	// deviations to every measurement.
	NoiseStdDev *float64 `mapstructure:"noiseStdDev" yaml:"noiseStdDev" validate:"required,gte=0"`
	// PlotPath is optional; no image is saved if it is empty.
	PlotPath *string `mapstructure:"plotPath" yaml:"plotPath,omitempty"`
}

type Logging struct {
	Driver   *string   `mapstructure:"driver" yaml:"driver" validate:"required,oneof=noop stdout influxdb"`
	InfluxDB *InfluxDB `mapstructure:"influxdb" yaml:"influxdb,omitempty" validate:"required_if=Driver influxdb"`
}

type InfluxDB struct {
	Addr   *string `mapstructure:"addr" yaml:"addr" validate:"required"`
	Token  *string `mapstructure:"token" yaml:"token" validate:"required"`
	Org    *string `mapstructure:"org" yaml:"org" validate:"required"`
	Bucket *string `mapstructure:"bucket" yaml:"bucket" validate:"required"`
}

type API struct {
	Enabled *bool `mapstructure:"enabled" yaml:"enabled" validate:"required"`
	Port    *int  `mapstructure:"port" yaml:"port" validate:"required,gt=0,lte=65535"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("controller.kp", 2)
	v.SetDefault("controller.ki", 0.05)
	v.SetDefault("controller.kd", 0)

	v.SetDefault("loop.setpoint", 60)
	v.SetDefault("loop.samplePeriod", 1)
	v.SetDefault("loop.cycleTimeCollector", "tachymeter")
	v.SetDefault("loop.cycleTimeWindow", 100)

	v.SetDefault("simulation.plant", "boiler")
	v.SetDefault("simulation.initialValue", 0)
	v.SetDefault("simulation.loops", 300)
	v.SetDefault("simulation.noiseStdDev", 0)

	v.SetDefault("logging.driver", "noop")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)

	// Keys without a default are unknown to viper until bound, so they
	// would not be overridden by AutomaticEnv.
	for _, key := range []string{
		"controller.integralLimit",
		"simulation.plotPath",
		"logging.influxdb.addr",
		"logging.influxdb.token",
		"logging.influxdb.org",
		"logging.influxdb.bucket",
	} {
		_ = v.BindEnv(key)
	}
}

// ReadConfig reads the YAML configuration at path, falling back to defaults
// if path is empty. Any key may be overridden by an environment variable
// prefixed with PID, e.g. PID_CONTROLLER_KP.
func ReadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error when reading config file at %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error occurred while reading configuration: %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks every constraint of the configuration, reporting all
// violations at once.
func Validate(config *Config) error {
	validate := validator.New()
	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		return fmt.Errorf("unable to validate config: %w", err)
	}

	var messages []string
	for _, err := range err.(validator.ValidationErrors) {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("encountered validation errors:\n\t%s", strings.Join(messages, "\n\t"))
}

// Dump renders the configuration as YAML.
func Dump(config *Config) ([]byte, error) {
	return yaml.Marshal(config)
}
