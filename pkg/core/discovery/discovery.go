// Package discovery locates control-task servers through the name service.
//
// An Access owns the process transport and the root naming context from
// Init until Shutdown. Between the two it lists the tasks bound under the
// task context and resolves them into verified control-task handles.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/msto63/taskdir/pkg/controltask"
	"github.com/msto63/taskdir/pkg/core/config"
	coregrpc "github.com/msto63/taskdir/pkg/core/grpc"
	"github.com/msto63/taskdir/pkg/core/logging"
	"github.com/msto63/taskdir/pkg/naming"
)

// Option configures an Access
type Option func(*Access)

// WithDialer replaces the TCP dialer of every transport connection
func WithDialer(dialer func(ctx context.Context, addr string) (net.Conn, error)) Option {
	return func(a *Access) {
		a.dialer = dialer
	}
}

// WithLogger replaces the default "discovery" logger
func WithLogger(logger *logging.Logger) Option {
	return func(a *Access) {
		a.logger = logger
	}
}

// Access is the discovery facade. Transport and root are either both set or
// both nil.
type Access struct {
	naming    config.NamingConfig
	transport config.TransportConfig
	dialer    func(ctx context.Context, addr string) (net.Conn, error)
	base      *logging.Logger // logger without runtime trace overrides
	logger    *logging.Logger

	mu        sync.Mutex
	tr        *Transport
	root      *naming.Context
	callLimit time.Duration
}

// New creates an uninitialized facade. A nil config means defaults.
func New(cfg *config.Config, opts ...Option) *Access {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &Access{
		naming:    cfg.Naming,
		transport: cfg.Transport,
		logger:    logging.New("discovery"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.base = a.logger
	if a.naming.TaskContext == "" {
		a.naming.TaskContext = config.Default().Naming.TaskContext
	}
	if a.naming.PageSize < 1 {
		a.naming.PageSize = config.Default().Naming.PageSize
	}
	return a
}

// Init starts the transport, consuming runtime arguments from args, and
// acquires the root naming context. It returns the remaining arguments and
// false when the facade is already initialized, another facade owns the
// process transport, or the name service cannot be acquired.
func (a *Access) Init(ctx context.Context, args []string) ([]string, bool) {
	rest, err := a.initialize(ctx, args)
	return rest, err == nil
}

func (a *Access) initialize(ctx context.Context, args []string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tr != nil {
		a.logger.Warn("Init called twice, keeping existing transport")
		return args, ErrAlreadyInitialized
	}
	if !claimProcessTransport() {
		a.logger.Error("Init rejected, another transport is active in this process")
		return args, ErrAlreadyInitialized
	}

	opts, rest, err := ParseRuntimeArgs(args)
	if err != nil {
		releaseProcessTransport()
		a.logger.Error("Init: invalid runtime arguments", "error", err)
		return args, err
	}
	for _, flag := range opts.Ignored {
		a.logger.Warn("Ignoring unknown runtime flag", "flag", flag)
	}

	logger := a.base
	if opts.TraceLevel != "" {
		logger = logger.WithLevel(logging.ParseLevel(opts.TraceLevel))
	}

	clientCfg := coregrpc.DefaultClientConfig("")
	clientCfg.CallTimeout = a.naming.CallTimeout.Duration
	if opts.CallTimeout > 0 {
		clientCfg.CallTimeout = opts.CallTimeout
	}
	if a.transport.MaxRecvMsgSize > 0 {
		clientCfg.MaxRecvMsgSize = a.transport.MaxRecvMsgSize
	}
	if a.transport.MaxSendMsgSize > 0 {
		clientCfg.MaxSendMsgSize = a.transport.MaxSendMsgSize
	}
	if a.transport.KeepaliveInterval.Duration > 0 {
		clientCfg.KeepaliveInterval = a.transport.KeepaliveInterval.Duration
	}
	if a.transport.KeepaliveTimeout.Duration > 0 {
		clientCfg.KeepaliveTimeout = a.transport.KeepaliveTimeout.Duration
	}
	clientCfg.Dialer = a.dialer

	initRefs := opts.InitRefs
	if _, ok := initRefs[naming.InitialServiceName]; !ok && a.naming.Address != "" {
		ref, err := parseEndpointRef(a.naming.Address, naming.InitialServiceName)
		if err != nil {
			releaseProcessTransport()
			logger.Error("Init: invalid naming.address", "address", a.naming.Address, "error", err)
			return args, err
		}
		initRefs[naming.InitialServiceName] = ref
	}

	tr := newTransport(clientCfg, initRefs, opts.DefaultInitRef)

	fail := func(err error) ([]string, error) {
		if cerr := tr.Close(); cerr != nil {
			logger.Warn("Closing transport after failed Init", "error", cerr)
		}
		releaseProcessTransport()
		return args, err
	}

	rootRef := tr.ResolveInitialReference(naming.InitialServiceName)
	if rootRef.IsNil() {
		logger.Error("Could not acquire NameService, no initial reference configured")
		return fail(ErrRegistryUnavailable)
	}

	narrowCtx := ctx
	if d := a.naming.DialTimeout.Duration; d > 0 {
		var cancel context.CancelFunc
		narrowCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	root, err := naming.NarrowContext(narrowCtx, tr, rootRef)
	if err != nil {
		logger.Error("Could not acquire NameService", "endpoint", rootRef.Endpoint, "error", err)
		return fail(fmt.Errorf("%w: %v", ErrRegistryUnavailable, err))
	}

	logger.Info("Found NameService", "endpoint", rootRef.Endpoint, "key", rootRef.Key)

	a.tr = tr
	a.root = root
	a.callLimit = clientCfg.CallTimeout
	a.logger = logger
	return rest, nil
}

// Shutdown destroys the root context and closes the transport. Faults are
// logged and swallowed. Without a prior successful Init it does nothing.
//
// Destroying the root removes it from the registry when it holds no
// bindings, so later clients of the same registry can no longer acquire it.
// A non-empty root refuses destruction and stays in place. Any
// -ORBTraceLevel override ends with the transport.
func (a *Access) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tr == nil {
		a.logger.Debug("Shutdown without active transport")
		return
	}

	ctx := context.Background()
	if a.callLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callLimit)
		defer cancel()
	}

	if err := a.root.Destroy(ctx); err != nil {
		a.logger.Warn("Root context destruction failed", "error", err)
	}
	if err := a.tr.Close(); err != nil {
		a.logger.Error("Transport destruction failed", "error", err)
	} else {
		a.logger.Info("Transport destroyed")
	}

	a.tr = nil
	a.root = nil
	a.logger = a.base
	releaseProcessTransport()
}

// Transport returns the active transport, or nil
func (a *Access) Transport() *Transport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tr
}

// RegistryRoot returns the root naming context, or nil
func (a *Access) RegistryRoot() *naming.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root
}

// Initialized reports whether Init succeeded and Shutdown has not run
func (a *Access) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tr != nil
}

// TaskContext returns the name of the context tasks are bound under
func (a *Access) TaskContext() string {
	return a.naming.TaskContext
}

func (a *Access) active() (*Transport, *naming.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tr == nil {
		return nil, nil, ErrNotInitialized
	}
	return a.tr, a.root, nil
}

// ListTasks returns every binding under the task context in discovery
// order. A missing task context yields an empty result.
func (a *Access) ListTasks(ctx context.Context) ([]naming.Binding, error) {
	tr, root, err := a.active()
	if err != nil {
		return nil, err
	}

	name := naming.NewName(a.naming.TaskContext)
	ref, found, err := root.Lookup(ctx, name)
	if err != nil {
		return nil, a.fault(name.String(), err)
	}
	if !found {
		a.logger.Debug("Task context not bound", "context", name.String())
		return []naming.Binding{}, nil
	}

	tasks, err := naming.NarrowContext(ctx, tr, ref)
	if err != nil {
		return nil, a.fault(name.String(), err)
	}

	bindings := []naming.Binding{}
	for b, err := range tasks.Bindings(ctx, a.naming.InitialBatch, a.naming.PageSize) {
		if err != nil {
			return nil, a.fault(name.String(), err)
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// ListTaskNames returns the first name component of every task binding
func (a *Access) ListTaskNames(ctx context.Context) ([]string, error) {
	bindings, err := a.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		names = append(names, b.Name.First())
	}
	return names, nil
}

// Resolve resolves an arbitrary name relative to the root context
func (a *Access) Resolve(ctx context.Context, name naming.Name) (naming.ObjectRef, error) {
	_, root, err := a.active()
	if err != nil {
		return naming.NilRef, err
	}

	ref, err := root.Resolve(ctx, name)
	if err != nil {
		return naming.NilRef, a.fault(name.String(), err)
	}
	return ref, nil
}

// FindTask resolves the task bound as name under the task context, narrows
// it to a control task and verifies it answers GetName. Lookup failures are
// returned as *Error.
func (a *Access) FindTask(ctx context.Context, name string) (*controltask.Task, error) {
	tr, root, err := a.active()
	if err != nil {
		return nil, err
	}
	if name == "" {
		a.logger.Error("Resolution failed", "name", name, "reason", string(ReasonNotFound), "error", "empty task name")
		return nil, &Error{Reason: ReasonNotFound, Name: name}
	}

	ref, err := root.Resolve(ctx, naming.NewName(a.naming.TaskContext, name))
	if err != nil {
		return nil, a.fault(name, err)
	}

	task, err := controltask.Narrow(ctx, tr, ref)
	if errors.Is(err, naming.ErrWrongType) {
		a.logger.Error("Failed to acquire ControlTaskServer", "name", name, "ref", ref.String())
		return nil, &Error{Reason: ReasonWrongType, Name: name}
	}
	if err != nil {
		return nil, a.fault(name, err)
	}

	// Forces the connection and proves the object is alive
	declared, err := task.GetName(ctx)
	if err != nil {
		return nil, a.fault(name, err)
	}

	a.logger.Info("Successfully connected to ControlTaskServer", "name", declared)
	return task, nil
}

func (a *Access) fault(name string, err error) error {
	classified := classify(name, err)

	var derr *Error
	if errors.As(classified, &derr) {
		a.logger.Error("Resolution failed", "name", name, "reason", string(derr.Reason), "error", err)
		return classified
	}

	a.logger.Error("Unexpected fault while resolving", "name", name, "error", err)
	return err
}

// Run initializes a facade, calls fn and shuts the facade down on every
// exit path, including panics in fn.
func Run(ctx context.Context, cfg *config.Config, args []string, fn func(context.Context, *Access) error, opts ...Option) error {
	a := New(cfg, opts...)
	if _, err := a.initialize(ctx, args); err != nil {
		return err
	}
	defer a.Shutdown()

	return fn(ctx, a)
}
