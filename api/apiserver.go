package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/valyala/fasthttp"

	"github.com/kcz17/pid/controlloop"
	"github.com/kcz17/pid/cycletime"
)

// Tunable is a running control loop whose controller may be inspected and
// retuned between cycles.
type Tunable interface {
	Gains() (kp, ki, kd float64)
	SetKp(kp float64)
	SetKi(ki float64)
	SetKd(kd float64)
	IntegralLimit() (float64, bool)
	SetIntegralLimit(limit float64)
	Setpoint() float64
	SetSetpoint(setpoint float64)
	ReadOutput() float64
	Snapshot() controlloop.Snapshot
	CycleTimes() *cycletime.Aggregation
	ResetController(clearIntegralLimit bool)
}

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("api server closed")

type APIServer struct {
	Loop     Tunable
	validate *validator.Validate
	server   *fasthttp.Server

	// ln is the listener being served, if any. Once closed is set, no new
	// listener is accepted.
	ln     net.Listener
	closed bool
	mux    *sync.Mutex
}

func NewAPIServer(loop Tunable) *APIServer {
	a := &APIServer{
		Loop:     loop,
		validate: validator.New(),
		mux:      &sync.Mutex{},
	}
	a.server = &fasthttp.Server{
		Handler:         a.Handler(),
		CloseOnShutdown: true,
	}
	return a
}

// Handler routes requests to the tuning endpoints. There is no DELETE
// /integral-limit; a limit is only removed by POST /reset with
// clearIntegralLimit set.
func (a *APIServer) Handler() fasthttp.RequestHandler {
	router := routing.New()

	router.Get("/gains", a.getGainsHandler())
	router.Post("/gains", a.setGainsHandler())

	router.Get("/integral-limit", a.getIntegralLimitHandler())
	router.Post("/integral-limit", a.setIntegralLimitHandler())

	router.Get("/setpoint", a.getSetpointHandler())
	router.Post("/setpoint", a.setSetpointHandler())

	router.Get("/output", a.getOutputHandler())
	router.Get("/state", a.getStateHandler())
	router.Get("/cycle-times", a.getCycleTimesHandler())

	router.Post("/reset", a.resetControllerHandler())

	return router.HandleRequest
}

func (a *APIServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}
	return a.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called. If Shutdown was
// already called, ln is closed immediately.
func (a *APIServer) Serve(ln net.Listener) error {
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	a.ln = ln
	a.mux.Unlock()

	err := a.server.Serve(ln)

	a.mux.Lock()
	defer a.mux.Unlock()
	if a.closed {
		return ErrServerClosed
	}
	return err
}

// Shutdown stops the server, waiting for open connections to finish. It may
// be called before Serve.
func (a *APIServer) Shutdown() error {
	a.mux.Lock()
	a.closed = true
	ln := a.ln
	a.mux.Unlock()

	err := a.server.Shutdown()
	// The listener may not have been registered with the fasthttp server yet;
	// closing it again otherwise only returns an error.
	if ln != nil {
		_ = ln.Close()
	}
	return err
}

type gains struct {
	Kp *float64 `json:"kp,omitempty"`
	Ki *float64 `json:"ki,omitempty"`
	Kd *float64 `json:"kd,omitempty"`
}

type integralLimit struct {
	Limit *float64 `json:"limit" validate:"required,gte=0"`
}

type setpoint struct {
	Setpoint *float64 `json:"setpoint" validate:"required"`
}

type output struct {
	Output float64 `json:"output"`
}

type state struct {
	PreviousError    float64 `json:"previousError"`
	PreviousIntegral float64 `json:"previousIntegral"`
	PreviousOutput   float64 `json:"previousOutput"`
	P                float64 `json:"p"`
	I                float64 `json:"i"`
	D                float64 `json:"d"`
}

type cycleTimes struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

type reset struct {
	ClearIntegralLimit bool `json:"clearIntegralLimit"`
}

// readBody decodes and validates a JSON request body into v.
func (a *APIServer) readBody(c *routing.Context, v interface{}) error {
	if err := json.Unmarshal(c.PostBody(), v); err != nil {
		return routing.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("could not parse body: %v", err))
	}
	if err := a.validate.Struct(v); err != nil {
		return routing.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
	}
	return nil
}

func writeJSON(c *routing.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal response: err = %w", err)
	}
	c.SetContentType("application/json")
	return c.Write(b)
}

func (a *APIServer) getGainsHandler() routing.Handler {
	return func(c *routing.Context) error {
		kp, ki, kd := a.Loop.Gains()
		return writeJSON(c, &gains{Kp: &kp, Ki: &ki, Kd: &kd})
	}
}

func (a *APIServer) setGainsHandler() routing.Handler {
	return func(c *routing.Context) error {
		var body gains
		if err := a.readBody(c, &body); err != nil {
			return err
		}
		if body.Kp == nil && body.Ki == nil && body.Kd == nil {
			return routing.NewHTTPError(http.StatusBadRequest, "expected at least one of {kp|ki|kd}")
		}

		// Gains are independent, so only those given are changed.
		if body.Kp != nil {
			a.Loop.SetKp(*body.Kp)
		}
		if body.Ki != nil {
			a.Loop.SetKi(*body.Ki)
		}
		if body.Kd != nil {
			a.Loop.SetKd(*body.Kd)
		}

		kp, ki, kd := a.Loop.Gains()
		return writeJSON(c, &gains{Kp: &kp, Ki: &ki, Kd: &kd})
	}
}

func (a *APIServer) getIntegralLimitHandler() routing.Handler {
	return func(c *routing.Context) error {
		response := &integralLimit{}
		if limit, ok := a.Loop.IntegralLimit(); ok {
			response.Limit = &limit
		}
		return writeJSON(c, response)
	}
}

func (a *APIServer) setIntegralLimitHandler() routing.Handler {
	return func(c *routing.Context) error {
		var body integralLimit
		if err := a.readBody(c, &body); err != nil {
			return err
		}
		a.Loop.SetIntegralLimit(*body.Limit)
		return writeJSON(c, &body)
	}
}

func (a *APIServer) getSetpointHandler() routing.Handler {
	return func(c *routing.Context) error {
		sp := a.Loop.Setpoint()
		return writeJSON(c, &setpoint{Setpoint: &sp})
	}
}

func (a *APIServer) setSetpointHandler() routing.Handler {
	return func(c *routing.Context) error {
		var body setpoint
		if err := a.readBody(c, &body); err != nil {
			return err
		}
		a.Loop.SetSetpoint(*body.Setpoint)
		return writeJSON(c, &body)
	}
}

func (a *APIServer) getOutputHandler() routing.Handler {
	return func(c *routing.Context) error {
		return writeJSON(c, &output{Output: a.Loop.ReadOutput()})
	}
}

func (a *APIServer) getStateHandler() routing.Handler {
	return func(c *routing.Context) error {
		snapshot := a.Loop.Snapshot()
		return writeJSON(c, &state{
			PreviousError:    snapshot.State.PreviousError,
			PreviousIntegral: snapshot.State.PreviousIntegral,
			PreviousOutput:   snapshot.State.PreviousOutput,
			P:                snapshot.Terms.P,
			I:                snapshot.Terms.I,
			D:                snapshot.Terms.D,
		})
	}
}

func (a *APIServer) getCycleTimesHandler() routing.Handler {
	return func(c *routing.Context) error {
		aggregation := a.Loop.CycleTimes()
		return writeJSON(c, &cycleTimes{
			P50: aggregation.P50.Seconds(),
			P75: aggregation.P75.Seconds(),
			P95: aggregation.P95.Seconds(),
		})
	}
}

func (a *APIServer) resetControllerHandler() routing.Handler {
	return func(c *routing.Context) error {
		var body reset
		if len(c.PostBody()) > 0 {
			if err := a.readBody(c, &body); err != nil {
				return err
			}
		}
		a.Loop.ResetController(body.ClearIntegralLimit)
		return c.Write("controller reset\n")
	}
}
