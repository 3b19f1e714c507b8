package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("create-bond", "eth0, eth1", "all parents must share a VLAN", "eth1 on VLAN 10")

	msg := err.Error()
	for _, want := range []string{"create-bond", "eth0, eth1", "all parents must share a VLAN", "eth1 on VLAN 10"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("PreconditionError should unwrap to ErrPreconditionFailed")
	}
}

func TestPreconditionErrorNoDetails(t *testing.T) {
	err := NewPreconditionError("delete", "eth0", "boot interface cannot be removed", "")
	if strings.HasSuffix(err.Error(), ")") {
		t.Errorf("Error() = %q, should not have a details suffix", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("name", "name is already in use")
		if err.Error() != "validation failed: name: name is already in use" {
			t.Errorf("Error() = %q", err.Error())
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := &ValidationError{Errors: []FieldError{
			{Field: "name", Message: "required"},
			{Field: "mac_address", Message: "invalid MAC address"},
		}}
		msg := err.Error()
		if !strings.Contains(msg, "name: required") || !strings.Contains(msg, "mac_address: invalid MAC address") {
			t.Errorf("Error() = %q, want both fields", msg)
		}
	})

	t.Run("fields keeps first message", func(t *testing.T) {
		err := &ValidationError{Errors: []FieldError{
			{Field: "ip_address", Message: "first"},
			{Field: "ip_address", Message: "second"},
		}}
		if got := err.Fields()["ip_address"]; got != "first" {
			t.Errorf("Fields()[ip_address] = %q, want first", got)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "name", "unused")
		if v.HasErrors() {
			t.Error("HasErrors() = true, want false")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() = %v, want nil", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "name", "required").AddErrorf("ip_address", "%s is outside %s", "10.0.1.1", "10.0.0.0/24")
		err := v.Build()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Build() = %T, want *ValidationError", err)
		}
		if len(ve.Errors) != 2 {
			t.Fatalf("len(Errors) = %d, want 2", len(ve.Errors))
		}
		if ve.Errors[1].Message != "10.0.1.1 is outside 10.0.0.0/24" {
			t.Errorf("Errors[1].Message = %q", ve.Errors[1].Message)
		}
	})
}

func TestMutationError(t *testing.T) {
	err := NewMutationError("create-physical-interface", "mac_address", "This MAC address is already in use by eth3.")
	if !errors.Is(err, ErrMutationRejected) {
		t.Errorf("MutationError should unwrap to ErrMutationRejected")
	}
	if !strings.Contains(err.Error(), "mac_address: This MAC address is already in use by eth3.") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFieldMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want map[string]string
	}{
		{"nil", nil, nil},
		{
			"mutation",
			fmt.Errorf("apply: %w", &MutationError{Operation: "x", Fields: map[string][]string{"name": {"taken.", "really."}}}),
			map[string]string{"name": "taken. really."},
		},
		{
			"validation",
			NewValidationError("mac_address", "invalid"),
			map[string]string{"mac_address": "invalid"},
		},
		{
			"other",
			errors.New("connection refused"),
			map[string]string{GeneralField: "connection refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldMessages(tt.err)
			if len(got) != len(tt.want) {
				t.Fatalf("FieldMessages() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("FieldMessages()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
