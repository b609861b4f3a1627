package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
)

func echoDescriptor() Descriptor {
	return Descriptor{
		Name: "echo",
		Params: []ParamSpec{
			{Name: "customer_id", Required: true},
			{Name: "detail"},
		},
		IdentityCandidates: []string{"customer_id"},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterValidation(t *testing.T) {
	r := New()
	if err := r.Register(echoDescriptor()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(echoDescriptor()); err == nil {
		t.Error("duplicate registration must fail")
	}
	if err := r.Register(Descriptor{Name: "broken"}); err == nil {
		t.Error("descriptor without handler must fail")
	}
	if err := r.Register(Descriptor{Name: ""}); err == nil {
		t.Error("descriptor without name must fail")
	}
}

func TestInvokeRejectsUnknownKey(t *testing.T) {
	d := echoDescriptor()
	_, err := d.Invoke(context.Background(), map[string]any{
		"customer_id": int64(1),
		"bogus":       true,
	})
	if !domain.IsSchemaRejection(err) {
		t.Fatalf("expected a schema rejection, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Message != `unexpected parameter "bogus"` {
		t.Errorf("rejection must name the offending key, got %v", err)
	}
}

func TestInvokeRequiresDeclaredParams(t *testing.T) {
	d := echoDescriptor()
	_, err := d.Invoke(context.Background(), map[string]any{"detail": "x"})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected a validation error, got %v", err)
	}

	out, err := d.Invoke(context.Background(), map[string]any{"customer_id": int64(1)})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if m, ok := out.(map[string]any); !ok || m["customer_id"] != int64(1) {
		t.Errorf("handler did not receive arguments: %+v", out)
	}
}

func TestNamesSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"zeta", "alpha"} {
		d := echoDescriptor()
		d.Name = name
		r.MustRegister(d)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("unexpected names %v", names)
	}
}
