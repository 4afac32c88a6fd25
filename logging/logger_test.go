package logging

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		influx  *InfluxDBOptions
		wantErr bool
	}{
		{name: "Noop", driver: Noop},
		{name: "Stdout", driver: Stdout},
		{name: "InfluxDB without options", driver: InfluxDB, wantErr: true},
		{name: "Unknown driver", driver: "syslog", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.driver, tt.influx)
			if tt.wantErr {
				assert.Errorf(t, err, "expected New(%s) returns err", tt.driver)
				return
			}
			assert.Nilf(t, err, "expected New(%s) has no err; got %v", tt.driver, err)
			assert.NotNil(t, logger)
			logger.Close()
		})
	}
}

func TestStdoutLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewStdoutLogger()
	logger.LogMeasurement(60, 41.5)
	logger.LogControllerOutput(12.25)
	logger.LogPIDControllerState(1, 2, 3, 4)
	logger.LogCycleTimes(0.1, 0.2, 0.3)

	out := buf.String()
	assert.Contains(t, out, "setpoint: 60.000, measured: 41.500")
	assert.Contains(t, out, "controller output: 12.250")
	assert.Contains(t, out, "p: 1.000, i: 2.000, d: 3.000, e(t): 4.000")
	assert.Contains(t, out, "cycle p50: 0.100, p75: 0.200, p95: 0.300")
}

func TestNoopLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewNoopLogger()
	logger.LogMeasurement(1, 2)
	logger.LogControllerOutput(3)
	logger.LogPIDControllerState(4, 5, 6, 7)
	logger.LogCycleTimes(8, 9, 10)
	logger.Close()

	assert.Empty(t, buf.String())
}
