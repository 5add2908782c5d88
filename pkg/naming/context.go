package naming

import (
	"context"
	"errors"
	"iter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrWrongType is returned when a reference cannot be narrowed to the
// requested type.
var ErrWrongType = errors.New("object does not support the requested type")

// ConnSource hands out connections by endpoint. It is satisfied by the
// connection pool of pkg/core/grpc.
type ConnSource interface {
	Get(target string) (*grpc.ClientConn, error)
}

// IsNotFound reports whether err is the registry's not-found condition
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Narrow checks that ref supports typeID. A matching static type id succeeds
// locally; otherwise the object is asked remotely. A nil reference never
// narrows.
func Narrow(ctx context.Context, conns ConnSource, ref ObjectRef, typeID string) (bool, error) {
	if ref.IsNil() {
		return false, nil
	}
	if ref.TypeID == typeID {
		return true, nil
	}
	cc, err := conns.Get(ref.Endpoint)
	if err != nil {
		return false, err
	}
	return NewObjectClient(cc).IsA(ctx, ref.Key, typeID)
}

// Context is a typed handle to a remote naming context
type Context struct {
	ref    ObjectRef
	conns  ConnSource
	client *NamingContextClient
}

// NewContext wraps ref without checking its type
func NewContext(conns ConnSource, ref ObjectRef) (*Context, error) {
	cc, err := conns.Get(ref.Endpoint)
	if err != nil {
		return nil, err
	}
	return &Context{
		ref:    ref,
		conns:  conns,
		client: NewNamingContextClient(cc),
	}, nil
}

// NarrowContext narrows ref to a naming context. It returns ErrWrongType
// when the object is not a context.
func NarrowContext(ctx context.Context, conns ConnSource, ref ObjectRef) (*Context, error) {
	ok, err := Narrow(ctx, conns, ref, ContextTypeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWrongType
	}
	return NewContext(conns, ref)
}

// Ref returns the context's object reference
func (c *Context) Ref() ObjectRef {
	return c.ref
}

// Resolve resolves name relative to this context. References returned
// without an endpoint live on the context's own endpoint.
func (c *Context) Resolve(ctx context.Context, name Name) (ObjectRef, error) {
	if err := name.Validate(); err != nil {
		return NilRef, status.Error(codes.InvalidArgument, err.Error())
	}
	ref, err := c.client.Resolve(ctx, c.ref.Key, name)
	if err != nil {
		return NilRef, err
	}
	return c.qualify(ref), nil
}

// Lookup resolves name and separates the not-found outcome from faults:
// found is false with a nil error when the path is not bound.
func (c *Context) Lookup(ctx context.Context, name Name) (ref ObjectRef, found bool, err error) {
	ref, err = c.Resolve(ctx, name)
	switch {
	case err == nil:
		return ref, true, nil
	case IsNotFound(err):
		return NilRef, false, nil
	default:
		return NilRef, false, err
	}
}

// List returns up to howMany bindings and an iterator over the rest. The
// iterator is nil when everything fit in the first batch.
func (c *Context) List(ctx context.Context, howMany int) ([]Binding, *Iterator, error) {
	bindings, itRef, err := c.client.List(ctx, c.ref.Key, howMany)
	if err != nil {
		return nil, nil, err
	}
	if itRef.IsNil() && itRef.Key == "" {
		return bindings, nil, nil
	}

	itRef = c.qualify(itRef)
	cc, err := c.conns.Get(itRef.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	return bindings, &Iterator{ref: itRef, client: NewBindingIteratorClient(cc)}, nil
}

// Bindings enumerates every binding of the context. The first List call asks
// for initial bindings; the remainder is pulled pageSize at a time. The
// iterator is destroyed when the sequence ends or the caller stops early.
// A fault is yielded once as the final element.
func (c *Context) Bindings(ctx context.Context, initial, pageSize int) iter.Seq2[Binding, error] {
	if initial < 0 {
		initial = 0
	}
	if pageSize < 1 {
		pageSize = 1
	}

	return func(yield func(Binding, error) bool) {
		first, it, err := c.List(ctx, initial)
		if err != nil {
			yield(Binding{}, err)
			return
		}
		if it != nil {
			defer it.Destroy(context.WithoutCancel(ctx))
		}

		for _, b := range first {
			if !yield(b, nil) {
				return
			}
		}
		if it == nil {
			return
		}

		for {
			page, more, err := it.NextN(ctx, pageSize)
			if err != nil {
				yield(Binding{}, err)
				return
			}
			for _, b := range page {
				if !yield(b, nil) {
					return
				}
			}
			if !more || len(page) == 0 {
				return
			}
		}
	}
}

// Destroy destroys the remote context
func (c *Context) Destroy(ctx context.Context) error {
	return c.client.Destroy(ctx, c.ref.Key)
}

func (c *Context) qualify(ref ObjectRef) ObjectRef {
	if ref.Endpoint == "" && ref.Key != "" {
		ref.Endpoint = c.ref.Endpoint
	}
	return ref
}

// Iterator is a handle to a remote binding iterator
type Iterator struct {
	ref       ObjectRef
	client    *BindingIteratorClient
	destroyed bool
}

// Ref returns the iterator's object reference
func (it *Iterator) Ref() ObjectRef {
	return it.ref
}

// NextN pulls up to howMany bindings; more is false once nothing remains
func (it *Iterator) NextN(ctx context.Context, howMany int) ([]Binding, bool, error) {
	if it.destroyed {
		return nil, false, status.Error(codes.FailedPrecondition, "binding iterator destroyed")
	}
	return it.client.NextN(ctx, it.ref.Key, howMany)
}

// Destroy releases the remote iterator. Repeated calls are no-ops.
func (it *Iterator) Destroy(ctx context.Context) error {
	if it.destroyed {
		return nil
	}
	it.destroyed = true
	return it.client.Destroy(ctx, it.ref.Key)
}
