package recon

import (
	"testing"

	"dmrifit/pkg/gradient"
)

type noopModel struct{}

func (noopModel) Fit(data []float32, voxels, measurements int) (Fit, error) {
	return nil, nil
}

func noopConstructor(gtab *gradient.Table, params Params) (Model, error) {
	return noopModel{}, nil
}

// TestRegisterLookup verifies registration and lookup by algorithm name
func TestRegisterLookup(t *testing.T) {
	Register("test-algo", noopConstructor)

	if _, ok := Lookup("test-algo"); !ok {
		t.Error("expected registered constructor to be found")
	}
	if _, ok := Lookup("missing-algo"); ok {
		t.Error("expected lookup of unregistered algorithm to fail")
	}
}

// TestRegisterDuplicate verifies that double registration panics, so
// backend wiring mistakes surface at process start
func TestRegisterDuplicate(t *testing.T) {
	Register("dup-algo", noopConstructor)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("dup-algo", noopConstructor)
}

// TestRegisterNil verifies that a nil constructor panics
func TestRegisterNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil constructor")
		}
	}()
	Register("nil-algo", nil)
}
