package naming

import "fmt"

// Type ids carried by object references
const (
	ObjectTypeID          = "taskdir.object.v1.Object"
	ContextTypeID         = "taskdir.naming.v1.NamingContext"
	BindingIteratorTypeID = "taskdir.naming.v1.BindingIterator"
)

// InitialServiceName is the well-known initial reference of the name service
const InitialServiceName = "NameService"

// ObjectRef is a generic reference to a remote object: the endpoint hosting
// it, the key identifying it there and its most derived type id.
type ObjectRef struct {
	TypeID   string
	Endpoint string
	Key      string
}

// NilRef is the nil object reference
var NilRef = ObjectRef{}

// IsNil reports whether the reference points nowhere
func (r ObjectRef) IsNil() bool {
	return r.Endpoint == ""
}

// String renders the reference in a corbaloc-like form
func (r ObjectRef) String() string {
	if r.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%s/%s (%s)", r.Endpoint, r.Key, r.TypeID)
}
