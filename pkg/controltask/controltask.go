// Package controltask holds the client stub of the remote control-task
// interface. Only the read-only calls needed for discovery and status
// reporting are exposed; task control itself lives in the task servers.
package controltask

import (
	"context"

	"github.com/msto63/taskdir/pkg/naming"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TypeID is the type id of control-task objects
const TypeID = "taskdir.controltask.v1.ControlTask"

// Full method names
const (
	ControlTask_GetName_FullMethodName      = "/taskdir.controltask.v1.ControlTask/GetName"
	ControlTask_GetTaskState_FullMethodName = "/taskdir.controltask.v1.ControlTask/GetTaskState"
)

// ControlTaskServer is the server API of a control task
type ControlTaskServer interface {
	GetName(ctx context.Context, key string) (string, error)
	GetTaskState(ctx context.Context, key string) (string, error)
}

// ControlTask_ServiceDesc is the grpc.ServiceDesc for the ControlTask service
var ControlTask_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "taskdir.controltask.v1.ControlTask",
	HandlerType: (*ControlTaskServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetName",
			Handler: naming.UnaryHandler(ControlTask_GetName_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				name, err := srv.(ControlTaskServer).GetName(ctx, naming.RequestKey(req))
				if err != nil {
					return nil, err
				}
				return wrapperspb.String(name), nil
			}),
		},
		{
			MethodName: "GetTaskState",
			Handler: naming.UnaryHandler(ControlTask_GetTaskState_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				state, err := srv.(ControlTaskServer).GetTaskState(ctx, naming.RequestKey(req))
				if err != nil {
					return nil, err
				}
				return wrapperspb.String(state), nil
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskdir/controltask.proto",
}

// RegisterControlTaskServer registers the ControlTask service
func RegisterControlTaskServer(s grpc.ServiceRegistrar, srv ControlTaskServer) {
	s.RegisterService(&ControlTask_ServiceDesc, srv)
}

// Task is a typed handle to a remote control task. It stays valid as long as
// the connection it was created from is open.
type Task struct {
	ref naming.ObjectRef
	cc  grpc.ClientConnInterface
}

// New wraps ref without checking its type
func New(cc grpc.ClientConnInterface, ref naming.ObjectRef) *Task {
	return &Task{ref: ref, cc: cc}
}

// Narrow narrows ref to a control task. It returns naming.ErrWrongType when
// the object is not a control task.
func Narrow(ctx context.Context, conns naming.ConnSource, ref naming.ObjectRef) (*Task, error) {
	ok, err := naming.Narrow(ctx, conns, ref, TypeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, naming.ErrWrongType
	}
	cc, err := conns.Get(ref.Endpoint)
	if err != nil {
		return nil, err
	}
	return New(cc, ref), nil
}

// Ref returns the task's object reference
func (t *Task) Ref() naming.ObjectRef {
	return t.ref
}

// GetName returns the task's declared name
func (t *Task) GetName(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	return t.callString(ctx, ControlTask_GetName_FullMethodName, opts...)
}

// GetTaskState returns the task's current state descriptor
func (t *Task) GetTaskState(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	return t.callString(ctx, ControlTask_GetTaskState_FullMethodName, opts...)
}

func (t *Task) callString(ctx context.Context, method string, opts ...grpc.CallOption) (string, error) {
	in, err := naming.NewRequest(t.ref.Key, nil)
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := t.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
