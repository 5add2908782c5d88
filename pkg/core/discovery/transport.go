package discovery

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	coregrpc "github.com/msto63/taskdir/pkg/core/grpc"
	"github.com/msto63/taskdir/pkg/naming"
	"google.golang.org/grpc"
)

// RuntimeArgPrefix marks command-line arguments owned by the transport
const RuntimeArgPrefix = "-ORB"

// processTransport is set while a transport is alive in this process
var processTransport atomic.Bool

func claimProcessTransport() bool {
	return processTransport.CompareAndSwap(false, true)
}

func releaseProcessTransport() {
	processTransport.Store(false)
}

// RuntimeOptions holds the settings carried by runtime arguments
type RuntimeOptions struct {
	// InitRefs maps initial reference names to endpoints (-ORBInitRef)
	InitRefs map[string]naming.ObjectRef
	// DefaultInitRef is the endpoint used for any unlisted initial reference
	DefaultInitRef string
	// CallTimeout overrides the configured per-call timeout when non-zero
	CallTimeout time.Duration
	// TraceLevel overrides the transport log level when set
	TraceLevel string
	// Ignored lists unknown runtime flags that were consumed
	Ignored []string
}

// SplitRuntimeArgs separates runtime flags (and their values) from the
// remaining arguments without interpreting them. Order is preserved.
func SplitRuntimeArgs(args []string) (runtime, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, RuntimeArgPrefix) {
			rest = append(rest, arg)
			continue
		}
		runtime = append(runtime, arg)
		if !strings.Contains(arg, "=") && i+1 < len(args) {
			i++
			runtime = append(runtime, args[i])
		}
	}
	return runtime, rest
}

// ParseRuntimeArgs consumes runtime flags from args and returns the parsed
// options together with the untouched remainder.
func ParseRuntimeArgs(args []string) (RuntimeOptions, []string, error) {
	opts := RuntimeOptions{InitRefs: make(map[string]naming.ObjectRef)}
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, RuntimeArgPrefix) {
			rest = append(rest, arg)
			continue
		}

		flag, value, hasValue := strings.Cut(arg, "=")
		if !hasValue {
			if i+1 >= len(args) {
				return opts, args, fmt.Errorf("runtime flag %s requires a value", flag)
			}
			i++
			value = args[i]
		}

		switch flag {
		case "-ORBInitRef":
			name, endpoint, ok := strings.Cut(value, "=")
			if !ok || name == "" || endpoint == "" {
				return opts, args, fmt.Errorf("-ORBInitRef expects Name=endpoint, got %q", value)
			}
			ref, err := parseEndpointRef(endpoint, name)
			if err != nil {
				return opts, args, fmt.Errorf("-ORBInitRef %s: %w", name, err)
			}
			opts.InitRefs[name] = ref
		case "-ORBDefaultInitRef":
			opts.DefaultInitRef = value
		case "-ORBCallTimeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return opts, args, fmt.Errorf("-ORBCallTimeout: %w", err)
			}
			opts.CallTimeout = d
		case "-ORBTraceLevel":
			opts.TraceLevel = value
		default:
			opts.Ignored = append(opts.Ignored, flag)
		}
	}

	return opts, rest, nil
}

// parseEndpointRef accepts "host:port", "corbaloc::host:port/Key" and
// "corbaloc:iiop:host:port/Key". The key defaults to defaultKey.
func parseEndpointRef(s, defaultKey string) (naming.ObjectRef, error) {
	ref := naming.ObjectRef{Key: defaultKey}

	if rest, ok := strings.CutPrefix(s, "corbaloc:"); ok {
		// Protocol tag is "" or "iiop"
		proto, addr, found := strings.Cut(rest, ":")
		if !found || (proto != "" && proto != "iiop") {
			return naming.NilRef, fmt.Errorf("unsupported locator %q", s)
		}
		s = addr
		if endpoint, key, hasKey := strings.Cut(s, "/"); hasKey {
			s = endpoint
			if key != "" {
				ref.Key = key
			}
		}
	}

	if s == "" || !strings.Contains(s, ":") {
		return naming.NilRef, fmt.Errorf("endpoint %q must be host:port", s)
	}
	ref.Endpoint = s
	return ref, nil
}

// Transport owns the connections to every endpoint this process talks to,
// plus the table of initial references.
type Transport struct {
	pool           *coregrpc.ConnectionPool
	initRefs       map[string]naming.ObjectRef
	defaultInitRef string
}

func newTransport(cfg coregrpc.ClientConfig, initRefs map[string]naming.ObjectRef, defaultInitRef string) *Transport {
	return &Transport{
		pool:           coregrpc.NewConnectionPool(cfg),
		initRefs:       initRefs,
		defaultInitRef: defaultInitRef,
	}
}

// ResolveInitialReference returns the reference registered for name, the
// default endpoint's object of that name, or the nil reference.
func (t *Transport) ResolveInitialReference(name string) naming.ObjectRef {
	if ref, ok := t.initRefs[name]; ok {
		return ref
	}
	if t.defaultInitRef != "" {
		ref, err := parseEndpointRef(t.defaultInitRef, name)
		if err == nil {
			return ref
		}
	}
	return naming.NilRef
}

// Get returns the pooled connection for endpoint
func (t *Transport) Get(endpoint string) (*grpc.ClientConn, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("nil object reference")
	}
	return t.pool.Get(endpoint)
}

// Status reports the connectivity state per endpoint
func (t *Transport) Status() map[string]string {
	return t.pool.GetStatus()
}

// Close closes every connection. Handles created from this transport stop
// working.
func (t *Transport) Close() error {
	return t.pool.Close()
}
