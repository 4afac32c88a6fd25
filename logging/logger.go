package logging

import "fmt"

// Drivers selectable through configuration.
const (
	Noop     = "noop"
	Stdout   = "stdout"
	InfluxDB = "influxdb"
)

type Logger interface {
	LogMeasurement(setpoint float64, measured float64)
	LogControllerOutput(output float64)
	LogPIDControllerState(p float64, i float64, d float64, errorTerm float64)
	LogCycleTimes(p50 float64, p75 float64, p95 float64) // Takes in percentiles in seconds.
	Close()
}

// InfluxDBOptions locate the bucket an InfluxDB logger writes to.
type InfluxDBOptions struct {
	Addr   string
	Token  string
	Org    string
	Bucket string
}

// New creates the logger for driver. influx is only read by the InfluxDB
// driver and must then be non-nil.
func New(driver string, influx *InfluxDBOptions) (Logger, error) {
	switch driver {
	case Noop:
		return NewNoopLogger(), nil
	case Stdout:
		return NewStdoutLogger(), nil
	case InfluxDB:
		if influx == nil {
			return nil, fmt.Errorf("logging.New() expected InfluxDB options for driver %s; got nil", driver)
		}
		return NewInfluxDBLogger(influx.Addr, influx.Token, influx.Org, influx.Bucket), nil
	default:
		return nil, fmt.Errorf("logging.New() expected driver to be one of {%s|%s|%s}; got %s", Noop, Stdout, InfluxDB, driver)
	}
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogMeasurement(float64, float64) {}

func (*noopLogger) LogControllerOutput(float64) {}

func (*noopLogger) LogPIDControllerState(float64, float64, float64, float64) {}

func (*noopLogger) LogCycleTimes(float64, float64, float64) {}

func (*noopLogger) Close() {}
