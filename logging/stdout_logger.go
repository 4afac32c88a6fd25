package logging

import (
	"log"
)

// stdoutLogger logs the output to standard output.
type stdoutLogger struct{}

func NewStdoutLogger() *stdoutLogger {
	return &stdoutLogger{}
}

func (*stdoutLogger) LogMeasurement(setpoint float64, measured float64) {
	log.Printf("setpoint: %.3f, measured: %.3f\n", setpoint, measured)
}

func (*stdoutLogger) LogControllerOutput(output float64) {
	log.Printf("controller output: %.3f\n", output)
}

func (*stdoutLogger) LogPIDControllerState(p float64, i float64, d float64, errorTerm float64) {
	log.Printf("p: %.3f, i: %.3f, d: %.3f, e(t): %.3f\n", p, i, d, errorTerm)
}

func (*stdoutLogger) LogCycleTimes(p50 float64, p75 float64, p95 float64) {
	log.Printf("cycle p50: %.3f, p75: %.3f, p95: %.3f\n", p50, p75, p95)
}

func (*stdoutLogger) Close() {}
