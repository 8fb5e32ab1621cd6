package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultHealthTimeout bounds a health check when the caller does not
// specify one.
const DefaultHealthTimeout = 5 * time.Second

// HealthError classifies a failed health check.
type HealthError string

const (
	// HealthTimeout: the server did not answer within the deadline.
	HealthTimeout HealthError = "timeout"
	// HealthUnreachable: the process could not be launched or the endpoint
	// refused the connection.
	HealthUnreachable HealthError = "unreachable"
	// HealthProtocol: the server answered, but not with a valid initialize
	// response.
	HealthProtocol HealthError = "protocol error"
)

// HealthResult is the transient outcome of probing one server. It is never
// persisted, and a probe never returns a Go error: every outcome, including
// timeouts and crashes, is expressed here so batch checks can continue past
// a bad server.
type HealthResult struct {
	Healthy bool
	Version string // server-reported version, when healthy
	Err     HealthError
	Detail  string // underlying cause, for display
}

// ServerProbe issues a liveness/identity request against one server entry.
// Implementations exist per transport; tests supply fakes.
type ServerProbe interface {
	Probe(ctx context.Context, entry Entry) HealthResult
}

// CheckHealth probes entry with the given probe under a deadline. A zero
// timeout selects DefaultHealthTimeout.
func CheckHealth(ctx context.Context, probe ServerProbe, entry Entry, timeout time.Duration) HealthResult {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := probe.Probe(ctx, entry)
	if !res.Healthy && ctx.Err() != nil && res.Err != HealthTimeout {
		// The transport surfaced the deadline as its own failure mode.
		res.Err = HealthTimeout
	}
	return res
}

// DefaultProbe selects the probe matching the entry's transport.
func DefaultProbe(entry Entry) ServerProbe {
	if entry.URL != "" {
		return HTTPProbe{}
	}
	return StdioProbe{}
}

// ---------------------------------------------------------------------------
// Stdio transport
// ---------------------------------------------------------------------------

// StdioProbe launches the server process and performs the MCP initialize
// handshake over its stdio.
type StdioProbe struct{}

// Probe implements ServerProbe.
func (StdioProbe) Probe(ctx context.Context, entry Entry) HealthResult {
	env := make([]string, 0, len(entry.Env))
	for k, v := range entry.Env {
		env = append(env, k+"="+v)
	}

	cl, err := mcpclient.NewStdioMCPClient(entry.Command, env, entry.Args...)
	if err != nil {
		return HealthResult{Err: HealthUnreachable, Detail: err.Error()}
	}
	defer cl.Close()

	return handshake(ctx, cl)
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// HTTPProbe connects to a remote server over the streamable HTTP transport.
type HTTPProbe struct{}

// Probe implements ServerProbe.
func (HTTPProbe) Probe(ctx context.Context, entry Entry) HealthResult {
	cl, err := mcpclient.NewStreamableHttpClient(entry.URL)
	if err != nil {
		return HealthResult{Err: HealthUnreachable, Detail: err.Error()}
	}
	defer cl.Close()

	if err := cl.Start(ctx); err != nil {
		return classifyFailure(ctx, err)
	}
	return handshake(ctx, cl)
}

// handshake runs the MCP initialize exchange and folds the outcome into a
// HealthResult.
func handshake(ctx context.Context, cl *mcpclient.Client) HealthResult {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "aicfg", Version: "health-check"}

	res, err := cl.Initialize(ctx, initReq)
	if err != nil {
		return classifyFailure(ctx, err)
	}

	version := res.ServerInfo.Version
	if res.ServerInfo.Name != "" {
		version = strings.TrimSpace(res.ServerInfo.Name + " " + version)
	}
	return HealthResult{Healthy: true, Version: version}
}

func classifyFailure(ctx context.Context, err error) HealthResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return HealthResult{Err: HealthTimeout, Detail: err.Error()}
	case strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such file") ||
		strings.Contains(err.Error(), "executable file not found"):
		return HealthResult{Err: HealthUnreachable, Detail: err.Error()}
	default:
		return HealthResult{Err: HealthProtocol, Detail: err.Error()}
	}
}
