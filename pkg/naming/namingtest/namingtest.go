// Package namingtest provides an in-process name service and control-task
// endpoint for tests. Servers listen on bufconn listeners registered with a
// Network, whose Dial method plugs into the transport's dialer option.
package namingtest

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	coregrpc "github.com/msto63/taskdir/pkg/core/grpc"
	"github.com/msto63/taskdir/pkg/controltask"
	"github.com/msto63/taskdir/pkg/naming"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

const stopGrace = time.Second

// RootKey is the object key of every server's root context
const RootKey = naming.InitialServiceName

// Network routes dials by endpoint to in-process listeners
type Network struct {
	mu        sync.Mutex
	listeners map[string]*bufconn.Listener
}

// NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*bufconn.Listener)}
}

// Dial connects to the listener registered for addr
func (n *Network) Dial(ctx context.Context, addr string) (net.Conn, error) {
	n.mu.Lock()
	lis, ok := n.listeners[addr]
	n.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("dial %s: connection refused", addr)
	}
	return lis.DialContext(ctx)
}

func (n *Network) listen(addr string) *bufconn.Listener {
	n.mu.Lock()
	defer n.mu.Unlock()

	lis := bufconn.Listen(bufSize)
	n.listeners[addr] = lis
	return lis
}

func (n *Network) remove(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, addr)
}

type entry struct {
	component naming.Component
	ref       naming.ObjectRef
	kind      naming.BindingType
}

type contextNode struct {
	entries []entry
}

func (c *contextNode) find(comp naming.Component) (entry, bool) {
	for _, e := range c.entries {
		if e.component == comp {
			return e, true
		}
	}
	return entry{}, false
}

type taskObject struct {
	name  string
	state string
}

// Server is an in-process endpoint hosting naming contexts, binding
// iterators, control tasks and opaque objects.
type Server struct {
	t        testing.TB
	network  *Network
	endpoint string
	srv      *coregrpc.Server

	mu          sync.Mutex
	contexts    map[string]*contextNode
	iterators   map[string][]naming.Binding
	tasks       map[string]*taskObject
	objects     map[string]string // key -> type id
	faults      map[string]error
	delay       time.Duration
	calls       map[string]int
	destroyedIt int
	destroyedCx int
}

// NewServer starts a server on endpoint. It is stopped on test cleanup.
func NewServer(t testing.TB, network *Network, endpoint string) *Server {
	t.Helper()

	s := &Server{
		t:         t,
		network:   network,
		endpoint:  endpoint,
		contexts:  map[string]*contextNode{RootKey: {}},
		iterators: make(map[string][]naming.Binding),
		tasks:     make(map[string]*taskObject),
		objects:   make(map[string]string),
		faults:    make(map[string]error),
		calls:     make(map[string]int),
	}

	cfg := coregrpc.DefaultServerConfig()
	cfg.EnableReflection = false
	s.srv = coregrpc.NewServer(cfg, grpc.ChainUnaryInterceptor(s.interceptor))

	naming.RegisterObjectServer(s.srv, objectService{s})
	naming.RegisterNamingContextServer(s.srv, contextService{s})
	naming.RegisterBindingIteratorServer(s.srv, iteratorService{s})
	controltask.RegisterControlTaskServer(s.srv, taskService{s})

	s.srv.ServeAsync(network.listen(endpoint))
	t.Cleanup(s.Stop)

	return s
}

// Endpoint returns the address the server is reachable at
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Root returns the reference of the root naming context
func (s *Server) Root() naming.ObjectRef {
	return naming.ObjectRef{TypeID: naming.ContextTypeID, Endpoint: s.endpoint, Key: RootKey}
}

// Stop unregisters the endpoint and drains in-flight calls, cutting them
// off after stopGrace
func (s *Server) Stop() {
	s.network.remove(s.endpoint)

	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	s.srv.StopWithTimeout(ctx)
}

// NewContext creates an unbound naming context on this server
func (s *Server) NewContext() naming.ObjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := "ctx/" + uuid.NewString()
	s.contexts[key] = &contextNode{}
	return naming.ObjectRef{TypeID: naming.ContextTypeID, Endpoint: s.endpoint, Key: key}
}

// NewTask creates an unbound control task with the given declared name and state
func (s *Server) NewTask(name, state string) naming.ObjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := "task/" + uuid.NewString()
	s.tasks[key] = &taskObject{name: name, state: state}
	return naming.ObjectRef{TypeID: controltask.TypeID, Endpoint: s.endpoint, Key: key}
}

// NewObject creates an unbound object of an arbitrary type
func (s *Server) NewObject(typeID string) naming.ObjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := "obj/" + uuid.NewString()
	s.objects[key] = typeID
	return naming.ObjectRef{TypeID: typeID, Endpoint: s.endpoint, Key: key}
}

// Bind binds ref under path, relative to the root context. Missing
// intermediate contexts are created. Context references hosted on this
// server are bound as sub-contexts.
func (s *Server) Bind(path naming.Name, ref naming.ObjectRef) {
	s.t.Helper()
	if len(path) == 0 {
		s.t.Fatal("namingtest: empty bind path")
	}

	parent := s.ensurePath(path[:len(path)-1])

	s.mu.Lock()
	defer s.mu.Unlock()

	kind := naming.BindingObject
	if ref.TypeID == naming.ContextTypeID {
		kind = naming.BindingContext
	}
	node := s.contexts[parent]
	last := path[len(path)-1]
	for i, e := range node.entries {
		if e.component == last {
			node.entries[i] = entry{component: last, ref: ref, kind: kind}
			return
		}
	}
	node.entries = append(node.entries, entry{component: last, ref: ref, kind: kind})
}

// BindTask creates a task whose declared name equals its bound name and
// binds it at contextName/name.
func (s *Server) BindTask(contextName, name, state string) naming.ObjectRef {
	ref := s.NewTask(name, state)
	s.Bind(naming.NewName(contextName, name), ref)
	return ref
}

// EnsureContext makes sure the context path exists under the root
func (s *Server) EnsureContext(path ...string) naming.ObjectRef {
	key := s.ensurePath(naming.NewName(path...))
	return naming.ObjectRef{TypeID: naming.ContextTypeID, Endpoint: s.endpoint, Key: key}
}

func (s *Server) ensurePath(path naming.Name) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := RootKey
	for _, comp := range path {
		node := s.contexts[key]
		e, ok := node.find(comp)
		if !ok {
			child := "ctx/" + uuid.NewString()
			s.contexts[child] = &contextNode{}
			ref := naming.ObjectRef{TypeID: naming.ContextTypeID, Endpoint: s.endpoint, Key: child}
			node.entries = append(node.entries, entry{component: comp, ref: ref, kind: naming.BindingContext})
			key = child
			continue
		}
		if e.kind != naming.BindingContext {
			s.t.Fatalf("namingtest: %s is bound to an object", comp.ID)
		}
		key = e.ref.Key
	}
	return key
}

// Fail makes every call to fullMethod return err until cleared with nil
func (s *Server) Fail(fullMethod string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, fullMethod)
		return
	}
	s.faults[fullMethod] = err
}

// SetDelay delays every call by d (honouring the caller's deadline)
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how often fullMethod was invoked
func (s *Server) Calls(fullMethod string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[fullMethod]
}

// OpenIterators returns the number of live binding iterators
func (s *Server) OpenIterators() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.iterators)
}

// DestroyedIterators returns how many iterators were destroyed by clients
func (s *Server) DestroyedIterators() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyedIt
}

// DestroyedContexts returns how many contexts were destroyed by clients
func (s *Server) DestroyedContexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyedCx
}

func (s *Server) interceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	s.mu.Lock()
	s.calls[info.FullMethod]++
	fault := s.faults[info.FullMethod]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	if fault != nil {
		return nil, fault
	}
	return handler(ctx, req)
}

func errNoObject(key string) error {
	return status.Errorf(codes.FailedPrecondition, "object %q does not exist", key)
}

// objectService answers IsA for every object kind
type objectService struct{ s *Server }

func (o objectService) IsA(_ context.Context, key, typeID string) (bool, error) {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.contexts[key] != nil:
		return typeID == naming.ContextTypeID || typeID == naming.ObjectTypeID, nil
	case s.tasks[key] != nil:
		return typeID == controltask.TypeID || typeID == naming.ObjectTypeID, nil
	}
	if t, ok := s.objects[key]; ok {
		return typeID == t || typeID == naming.ObjectTypeID, nil
	}
	if _, ok := s.iterators[key]; ok {
		return typeID == naming.BindingIteratorTypeID || typeID == naming.ObjectTypeID, nil
	}
	return false, errNoObject(key)
}

// contextService implements naming contexts over the in-memory tree
type contextService struct{ s *Server }

func (c contextService) Resolve(_ context.Context, key string, name naming.Name) (naming.ObjectRef, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.contexts[key]
	if !ok {
		return naming.NilRef, errNoObject(key)
	}
	if len(name) == 0 {
		return naming.NilRef, status.Error(codes.InvalidArgument, "invalid name")
	}

	for i, comp := range name {
		e, found := node.find(comp)
		if !found {
			return naming.NilRef, status.Errorf(codes.NotFound, "%s not found", name[:i+1])
		}
		if i == len(name)-1 {
			return e.ref, nil
		}
		if e.kind != naming.BindingContext {
			return naming.NilRef, status.Errorf(codes.NotFound, "%s is not a context", name[:i+1])
		}
		node = s.contexts[e.ref.Key]
		if node == nil {
			return naming.NilRef, status.Errorf(codes.NotFound, "%s was destroyed", name[:i+1])
		}
	}
	return naming.NilRef, status.Error(codes.Internal, "unreachable")
}

func (c contextService) List(_ context.Context, key string, howMany int) ([]naming.Binding, naming.ObjectRef, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.contexts[key]
	if !ok {
		return nil, naming.NilRef, errNoObject(key)
	}

	all := make([]naming.Binding, len(node.entries))
	for i, e := range node.entries {
		all[i] = naming.Binding{Name: naming.Name{e.component}, Type: e.kind}
	}

	if howMany > len(all) {
		howMany = len(all)
	}
	first, rest := all[:howMany], all[howMany:]
	if len(rest) == 0 {
		return first, naming.NilRef, nil
	}

	itKey := "it/" + uuid.NewString()
	s.iterators[itKey] = rest
	// Empty endpoint: the iterator lives next to the context
	return first, naming.ObjectRef{TypeID: naming.BindingIteratorTypeID, Key: itKey}, nil
}

func (c contextService) Destroy(_ context.Context, key string) error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.contexts[key]
	if !ok {
		return errNoObject(key)
	}
	if len(node.entries) > 0 {
		return status.Errorf(codes.FailedPrecondition, "context %q is not empty", key)
	}
	delete(s.contexts, key)
	s.destroyedCx++
	return nil
}

// iteratorService pages through snapshots taken by List
type iteratorService struct{ s *Server }

func (i iteratorService) NextN(_ context.Context, key string, howMany int) ([]naming.Binding, bool, error) {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rest, ok := s.iterators[key]
	if !ok {
		return nil, false, errNoObject(key)
	}
	if howMany < 1 {
		return nil, false, status.Error(codes.InvalidArgument, "how_many must be positive")
	}

	if howMany > len(rest) {
		howMany = len(rest)
	}
	page := rest[:howMany]
	s.iterators[key] = rest[howMany:]
	return page, len(page) > 0, nil
}

func (i iteratorService) Destroy(_ context.Context, key string) error {
	s := i.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.iterators[key]; !ok {
		return errNoObject(key)
	}
	delete(s.iterators, key)
	s.destroyedIt++
	return nil
}

// taskService serves the read-only control-task calls
type taskService struct{ s *Server }

func (t taskService) GetName(_ context.Context, key string) (string, error) {
	task, err := t.lookup(key)
	if err != nil {
		return "", err
	}
	return task.name, nil
}

func (t taskService) GetTaskState(_ context.Context, key string) (string, error) {
	task, err := t.lookup(key)
	if err != nil {
		return "", err
	}
	return task.state, nil
}

func (t taskService) lookup(key string) (*taskObject, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[key]
	if !ok {
		if _, isObj := s.objects[key]; isObj {
			return nil, status.Errorf(codes.Unimplemented, "object %q is not a control task", key)
		}
		return nil, errNoObject(key)
	}
	return task, nil
}
