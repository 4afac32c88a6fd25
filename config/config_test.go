package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadConfig_Defaults(t *testing.T) {
	config, err := ReadConfig("")
	require.Nilf(t, err, "expected ReadConfig() has no err; got %v", err)

	assert.Equal(t, 2.0, *config.Controller.Kp)
	assert.Equal(t, 0.05, *config.Controller.Ki)
	assert.Equal(t, 0.0, *config.Controller.Kd)
	assert.Nil(t, config.Controller.IntegralLimit, "expected no integral limit by default")
	assert.Equal(t, 60.0, *config.Loop.Setpoint)
	assert.Equal(t, 1.0, *config.Loop.SamplePeriod)
	assert.Equal(t, "tachymeter", *config.Loop.CycleTimeCollector)
	assert.Equal(t, "boiler", *config.Simulation.Plant)
	assert.Equal(t, 300, *config.Simulation.Loops)
	assert.Nil(t, config.Simulation.PlotPath)
	assert.Equal(t, "noop", *config.Logging.Driver)
	assert.Nil(t, config.Logging.InfluxDB)
	assert.Equal(t, 8080, *config.API.Port)
}

func TestReadConfig_File(t *testing.T) {
	path := writeConfig(t, `
controller:
  kp: 5
  ki: 0.5
  kd: 0.01
  integralLimit: 0
loop:
  setpoint: 10
  samplePeriod: 0.01
  cycleTimeCollector: array
simulation:
  plant: motor
  loops: 500
  plotPath: out/motor.png
logging:
  driver: influxdb
  influxdb:
    addr: http://localhost:8086
    token: token
    org: org
    bucket: pid
`)

	config, err := ReadConfig(path)
	require.Nilf(t, err, "expected ReadConfig() has no err; got %v", err)

	assert.Equal(t, 5.0, *config.Controller.Kp)
	assert.Equal(t, 0.5, *config.Controller.Ki)
	assert.Equal(t, 0.01, *config.Controller.Kd)
	require.NotNil(t, config.Controller.IntegralLimit, "expected a zero integral limit to be kept")
	assert.Equal(t, 0.0, *config.Controller.IntegralLimit)
	assert.Equal(t, 10.0, *config.Loop.Setpoint)
	assert.Equal(t, 0.01, *config.Loop.SamplePeriod)
	assert.Equal(t, "array", *config.Loop.CycleTimeCollector)
	assert.Equal(t, "motor", *config.Simulation.Plant)
	assert.Equal(t, 500, *config.Simulation.Loops)
	assert.Equal(t, "out/motor.png", *config.Simulation.PlotPath)
	assert.Equal(t, "influxdb", *config.Logging.Driver)
	require.NotNil(t, config.Logging.InfluxDB)
	assert.Equal(t, "pid", *config.Logging.InfluxDB.Bucket)
}

func TestReadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "controller:\n  kp: 5\n")
	t.Setenv("PID_CONTROLLER_KP", "7.5")

	config, err := ReadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, 7.5, *config.Controller.Kp)
}

func TestReadConfig_EnvOverridesKeysWithoutDefaults(t *testing.T) {
	t.Setenv("PID_CONTROLLER_INTEGRALLIMIT", "5")
	t.Setenv("PID_SIMULATION_PLOTPATH", "out/boiler.png")
	t.Setenv("PID_LOGGING_DRIVER", "influxdb")
	t.Setenv("PID_LOGGING_INFLUXDB_ADDR", "http://localhost:8086")
	t.Setenv("PID_LOGGING_INFLUXDB_TOKEN", "token")
	t.Setenv("PID_LOGGING_INFLUXDB_ORG", "org")
	t.Setenv("PID_LOGGING_INFLUXDB_BUCKET", "pid")

	config, err := ReadConfig("")
	require.Nilf(t, err, "expected ReadConfig() has no err; got %v", err)

	require.NotNil(t, config.Controller.IntegralLimit)
	assert.Equal(t, 5.0, *config.Controller.IntegralLimit)
	require.NotNil(t, config.Simulation.PlotPath)
	assert.Equal(t, "out/boiler.png", *config.Simulation.PlotPath)
	require.NotNil(t, config.Logging.InfluxDB)
	assert.Equal(t, "http://localhost:8086", *config.Logging.InfluxDB.Addr)
	assert.Equal(t, "pid", *config.Logging.InfluxDB.Bucket)
}

func TestReadConfig_EnvRejectsNegativeIntegralLimit(t *testing.T) {
	t.Setenv("PID_CONTROLLER_INTEGRALLIMIT", "-1")

	_, err := ReadConfig("")
	assert.Error(t, err)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "Negative integral limit",
			contents: "controller:\n  integralLimit: -1\n",
			want:     "IntegralLimit",
		},
		{
			name:     "Non-positive sample period",
			contents: "loop:\n  samplePeriod: 0\n",
			want:     "SamplePeriod",
		},
		{
			name:     "Unknown logging driver",
			contents: "logging:\n  driver: syslog\n",
			want:     "Driver",
		},
		{
			name:     "InfluxDB driver without InfluxDB",
			contents: "logging:\n  driver: influxdb\n",
			want:     "InfluxDB",
		},
		{
			name:     "Unknown plant",
			contents: "simulation:\n  plant: pendulum\n",
			want:     "Plant",
		},
		{
			name:     "Unknown collector",
			contents: "loop:\n  cycleTimeCollector: histogram\n",
			want:     "CycleTimeCollector",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ReadConfig(writeConfig(t, tt.contents))
			assert.Nil(t, config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	config, err := ReadConfig("")
	require.Nil(t, err)

	out, err := Dump(config)
	require.Nil(t, err)

	var dumped Config
	require.Nil(t, yaml.Unmarshal(out, &dumped))
	assert.Equal(t, *config.Controller.Kp, *dumped.Controller.Kp)
	assert.Nil(t, dumped.Controller.IntegralLimit)
	assert.NotContains(t, string(out), "influxdb")
}
