package naming

import (
	"testing"
)

func TestNameString(t *testing.T) {
	tests := []struct {
		name Name
		want string
	}{
		{NewName("ControlTasks"), "ControlTasks"},
		{NewName("ControlTasks", "alpha"), "ControlTasks/alpha"},
		{Name{{ID: "log", Kind: "ctx"}, {ID: "a/b"}}, `log.ctx/a\/b`},
		{Name{{ID: "v1.2"}}, `v1\.2`},
		{Name{}, ""},
	}

	for _, tt := range tests {
		if got := tt.name.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"alpha", NewName("alpha"), false},
		{"ControlTasks/alpha", NewName("ControlTasks", "alpha"), false},
		{"log.ctx/x", Name{{ID: "log", Kind: "ctx"}, {ID: "x"}}, false},
		{`a\/b`, NewName("a/b"), false},
		{".kind", Name{{Kind: "kind"}}, false},
		{"", nil, true},
		{"a//b", nil, true},
		{`dangling\`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseName() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("component %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNameRoundTrip(t *testing.T) {
	names := []Name{
		NewName("a", "b", "c"),
		{{ID: `we\ird`, Kind: "k.v"}, {ID: "x/y"}},
		{{ID: "svc", Kind: "task"}},
	}

	for _, n := range names {
		parsed, err := ParseName(n.String())
		if err != nil {
			t.Fatalf("ParseName(%q) error = %v", n.String(), err)
		}
		if parsed.String() != n.String() {
			t.Errorf("round trip = %q, want %q", parsed.String(), n.String())
		}
	}
}

func TestNameValidate(t *testing.T) {
	if err := NewName("a").Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (Name{}).Validate(); err == nil {
		t.Error("Validate() on empty name = nil, want error")
	}
	if err := NewName("a", "").Validate(); err == nil {
		t.Error("Validate() with empty component = nil, want error")
	}
}

func TestNameFirst(t *testing.T) {
	if got := NewName("alpha", "beta").First(); got != "alpha" {
		t.Errorf("First() = %q, want %q", got, "alpha")
	}
	if got := (Name{}).First(); got != "" {
		t.Errorf("First() = %q, want empty", got)
	}
}

func TestObjectRef(t *testing.T) {
	if !NilRef.IsNil() {
		t.Error("NilRef.IsNil() = false")
	}
	if NilRef.String() != "nil" {
		t.Errorf("NilRef.String() = %q, want %q", NilRef.String(), "nil")
	}

	ref := ObjectRef{TypeID: ContextTypeID, Endpoint: "h:1", Key: "NameService"}
	if ref.IsNil() {
		t.Error("IsNil() = true for a bound reference")
	}
	want := "h:1/NameService (" + ContextTypeID + ")"
	if ref.String() != want {
		t.Errorf("String() = %q, want %q", ref.String(), want)
	}
}

func TestRequestKey(t *testing.T) {
	req, err := NewRequest("ctx/1", map[string]interface{}{fieldHowMany: 5})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if RequestKey(req) != "ctx/1" {
		t.Errorf("RequestKey() = %q, want %q", RequestKey(req), "ctx/1")
	}
	if howMany(req) != 5 {
		t.Errorf("howMany() = %d, want 5", howMany(req))
	}

	neg, _ := NewRequest("k", map[string]interface{}{fieldHowMany: -3})
	if howMany(neg) != 0 {
		t.Errorf("howMany() = %d, want 0 for negative input", howMany(neg))
	}
}
