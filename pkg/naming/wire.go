package naming

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Wire field names shared by every service in this package
const (
	fieldKey      = "key"
	fieldName     = "name"
	fieldID       = "id"
	fieldKind     = "kind"
	fieldType     = "type"
	fieldTypeID   = "type_id"
	fieldEndpoint = "endpoint"
	fieldHowMany  = "how_many"
	fieldBindings = "bindings"
	fieldIterator = "iterator"
	fieldMore     = "more"
)

// NewRequest builds a request message addressed to the object with key.
// Extra fields must be structpb-compatible values.
func NewRequest(key string, fields map[string]interface{}) (*structpb.Struct, error) {
	m := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m[fieldKey] = key
	return structpb.NewStruct(m)
}

// RequestKey returns the target object key of a request
func RequestKey(req *structpb.Struct) string {
	return req.GetFields()[fieldKey].GetStringValue()
}

func encodeName(n Name) []interface{} {
	out := make([]interface{}, len(n))
	for i, c := range n {
		out[i] = map[string]interface{}{
			fieldID:   c.ID,
			fieldKind: c.Kind,
		}
	}
	return out
}

func decodeName(v *structpb.Value) (Name, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("name is not a list")
	}
	name := make(Name, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s := item.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("name component %d is not a struct", i)
		}
		name = append(name, Component{
			ID:   s.GetFields()[fieldID].GetStringValue(),
			Kind: s.GetFields()[fieldKind].GetStringValue(),
		})
	}
	return name, nil
}

func encodeBindings(bindings []Binding) []interface{} {
	out := make([]interface{}, len(bindings))
	for i, b := range bindings {
		out[i] = map[string]interface{}{
			fieldName: encodeName(b.Name),
			fieldType: string(b.Type),
		}
	}
	return out
}

func decodeBindings(v *structpb.Value) ([]Binding, error) {
	if v == nil {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("bindings is not a list")
	}
	bindings := make([]Binding, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s := item.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("binding %d is not a struct", i)
		}
		name, err := decodeName(s.GetFields()[fieldName])
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		bindings = append(bindings, Binding{
			Name: name,
			Type: BindingType(s.GetFields()[fieldType].GetStringValue()),
		})
	}
	return bindings, nil
}

func encodeRef(ref ObjectRef) map[string]interface{} {
	return map[string]interface{}{
		fieldTypeID:   ref.TypeID,
		fieldEndpoint: ref.Endpoint,
		fieldKey:      ref.Key,
	}
}

func decodeRef(s *structpb.Struct) ObjectRef {
	f := s.GetFields()
	return ObjectRef{
		TypeID:   f[fieldTypeID].GetStringValue(),
		Endpoint: f[fieldEndpoint].GetStringValue(),
		Key:      f[fieldKey].GetStringValue(),
	}
}

func howMany(req *structpb.Struct) int {
	n := int(req.GetFields()[fieldHowMany].GetNumberValue())
	if n < 0 {
		return 0
	}
	return n
}
