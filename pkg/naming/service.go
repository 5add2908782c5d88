package naming

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names
const (
	Object_IsA_FullMethodName              = "/taskdir.object.v1.Object/IsA"
	NamingContext_Resolve_FullMethodName   = "/taskdir.naming.v1.NamingContext/Resolve"
	NamingContext_List_FullMethodName      = "/taskdir.naming.v1.NamingContext/List"
	NamingContext_Destroy_FullMethodName   = "/taskdir.naming.v1.NamingContext/Destroy"
	BindingIterator_NextN_FullMethodName   = "/taskdir.naming.v1.BindingIterator/NextN"
	BindingIterator_Destroy_FullMethodName = "/taskdir.naming.v1.BindingIterator/Destroy"
)

// UnaryCall is the decoded form of a unary method: the request is always a
// Struct addressed by key, the response any proto message.
type UnaryCall func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error)

// UnaryHandler adapts a UnaryCall to a grpc.MethodHandler, running the
// server's interceptor chain when one is installed.
func UnaryHandler(fullMethod string, call UnaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

// ObjectServer is implemented by every endpoint hosting objects
type ObjectServer interface {
	// IsA reports whether the object with key supports typeID
	IsA(ctx context.Context, key, typeID string) (bool, error)
}

// Object_ServiceDesc is the grpc.ServiceDesc for the Object service
var Object_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "taskdir.object.v1.Object",
	HandlerType: (*ObjectServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "IsA",
			Handler: UnaryHandler(Object_IsA_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				ok, err := srv.(ObjectServer).IsA(ctx, RequestKey(req), req.GetFields()[fieldTypeID].GetStringValue())
				if err != nil {
					return nil, err
				}
				return wrapperspb.Bool(ok), nil
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskdir/object.proto",
}

// RegisterObjectServer registers the Object service
func RegisterObjectServer(s grpc.ServiceRegistrar, srv ObjectServer) {
	s.RegisterService(&Object_ServiceDesc, srv)
}

// ObjectClient calls the Object service
type ObjectClient struct {
	cc grpc.ClientConnInterface
}

// NewObjectClient creates an Object client
func NewObjectClient(cc grpc.ClientConnInterface) *ObjectClient {
	return &ObjectClient{cc: cc}
}

// IsA asks the remote object whether it supports typeID
func (c *ObjectClient) IsA(ctx context.Context, key, typeID string, opts ...grpc.CallOption) (bool, error) {
	in, err := NewRequest(key, map[string]interface{}{fieldTypeID: typeID})
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, Object_IsA_FullMethodName, in, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// ---------------------------------------------------------------------------
// NamingContext
// ---------------------------------------------------------------------------

// NamingContextServer is the server API of a naming context. Resolve returns
// codes.NotFound when the path does not resolve.
type NamingContextServer interface {
	Resolve(ctx context.Context, key string, name Name) (ObjectRef, error)
	// List returns up to howMany bindings plus an iterator over the rest;
	// the iterator is the nil reference when nothing remains.
	List(ctx context.Context, key string, howMany int) ([]Binding, ObjectRef, error)
	Destroy(ctx context.Context, key string) error
}

// NamingContext_ServiceDesc is the grpc.ServiceDesc for the NamingContext service
var NamingContext_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "taskdir.naming.v1.NamingContext",
	HandlerType: (*NamingContextServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Resolve",
			Handler: UnaryHandler(NamingContext_Resolve_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				name, err := decodeName(req.GetFields()[fieldName])
				if err != nil {
					return nil, err
				}
				ref, err := srv.(NamingContextServer).Resolve(ctx, RequestKey(req), name)
				if err != nil {
					return nil, err
				}
				return structpb.NewStruct(encodeRef(ref))
			}),
		},
		{
			MethodName: "List",
			Handler: UnaryHandler(NamingContext_List_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				bindings, it, err := srv.(NamingContextServer).List(ctx, RequestKey(req), howMany(req))
				if err != nil {
					return nil, err
				}
				return structpb.NewStruct(map[string]interface{}{
					fieldBindings: encodeBindings(bindings),
					fieldIterator: encodeRef(it),
				})
			}),
		},
		{
			MethodName: "Destroy",
			Handler: UnaryHandler(NamingContext_Destroy_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				if err := srv.(NamingContextServer).Destroy(ctx, RequestKey(req)); err != nil {
					return nil, err
				}
				return &emptypb.Empty{}, nil
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskdir/naming.proto",
}

// RegisterNamingContextServer registers the NamingContext service
func RegisterNamingContextServer(s grpc.ServiceRegistrar, srv NamingContextServer) {
	s.RegisterService(&NamingContext_ServiceDesc, srv)
}

// NamingContextClient calls the NamingContext service
type NamingContextClient struct {
	cc grpc.ClientConnInterface
}

// NewNamingContextClient creates a NamingContext client
func NewNamingContextClient(cc grpc.ClientConnInterface) *NamingContextClient {
	return &NamingContextClient{cc: cc}
}

// Resolve resolves name relative to the context with key
func (c *NamingContextClient) Resolve(ctx context.Context, key string, name Name, opts ...grpc.CallOption) (ObjectRef, error) {
	in, err := NewRequest(key, map[string]interface{}{fieldName: encodeName(name)})
	if err != nil {
		return NilRef, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, NamingContext_Resolve_FullMethodName, in, out, opts...); err != nil {
		return NilRef, err
	}
	return decodeRef(out), nil
}

// List returns up to howMany bindings and an iterator over the remainder
func (c *NamingContextClient) List(ctx context.Context, key string, howMany int, opts ...grpc.CallOption) ([]Binding, ObjectRef, error) {
	in, err := NewRequest(key, map[string]interface{}{fieldHowMany: howMany})
	if err != nil {
		return nil, NilRef, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, NamingContext_List_FullMethodName, in, out, opts...); err != nil {
		return nil, NilRef, err
	}
	bindings, err := decodeBindings(out.GetFields()[fieldBindings])
	if err != nil {
		return nil, NilRef, fmt.Errorf("decode list response: %w", err)
	}
	return bindings, decodeRef(out.GetFields()[fieldIterator].GetStructValue()), nil
}

// Destroy destroys the context with key
func (c *NamingContextClient) Destroy(ctx context.Context, key string, opts ...grpc.CallOption) error {
	in, err := NewRequest(key, nil)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, NamingContext_Destroy_FullMethodName, in, new(emptypb.Empty), opts...)
}

// ---------------------------------------------------------------------------
// BindingIterator
// ---------------------------------------------------------------------------

// BindingIteratorServer is the server API of a binding iterator. NextN
// reports more=false only when it returned no bindings.
type BindingIteratorServer interface {
	NextN(ctx context.Context, key string, howMany int) ([]Binding, bool, error)
	Destroy(ctx context.Context, key string) error
}

// BindingIterator_ServiceDesc is the grpc.ServiceDesc for the BindingIterator service
var BindingIterator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "taskdir.naming.v1.BindingIterator",
	HandlerType: (*BindingIteratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "NextN",
			Handler: UnaryHandler(BindingIterator_NextN_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				bindings, more, err := srv.(BindingIteratorServer).NextN(ctx, RequestKey(req), howMany(req))
				if err != nil {
					return nil, err
				}
				return structpb.NewStruct(map[string]interface{}{
					fieldBindings: encodeBindings(bindings),
					fieldMore:     more,
				})
			}),
		},
		{
			MethodName: "Destroy",
			Handler: UnaryHandler(BindingIterator_Destroy_FullMethodName, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				if err := srv.(BindingIteratorServer).Destroy(ctx, RequestKey(req)); err != nil {
					return nil, err
				}
				return &emptypb.Empty{}, nil
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskdir/naming.proto",
}

// RegisterBindingIteratorServer registers the BindingIterator service
func RegisterBindingIteratorServer(s grpc.ServiceRegistrar, srv BindingIteratorServer) {
	s.RegisterService(&BindingIterator_ServiceDesc, srv)
}

// BindingIteratorClient calls the BindingIterator service
type BindingIteratorClient struct {
	cc grpc.ClientConnInterface
}

// NewBindingIteratorClient creates a BindingIterator client
func NewBindingIteratorClient(cc grpc.ClientConnInterface) *BindingIteratorClient {
	return &BindingIteratorClient{cc: cc}
}

// NextN pulls up to howMany bindings
func (c *BindingIteratorClient) NextN(ctx context.Context, key string, howMany int, opts ...grpc.CallOption) ([]Binding, bool, error) {
	in, err := NewRequest(key, map[string]interface{}{fieldHowMany: howMany})
	if err != nil {
		return nil, false, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BindingIterator_NextN_FullMethodName, in, out, opts...); err != nil {
		return nil, false, err
	}
	bindings, err := decodeBindings(out.GetFields()[fieldBindings])
	if err != nil {
		return nil, false, fmt.Errorf("decode next_n response: %w", err)
	}
	return bindings, out.GetFields()[fieldMore].GetBoolValue(), nil
}

// Destroy releases the iterator
func (c *BindingIteratorClient) Destroy(ctx context.Context, key string, opts ...grpc.CallOption) error {
	in, err := NewRequest(key, nil)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, BindingIterator_Destroy_FullMethodName, in, new(emptypb.Empty), opts...)
}
