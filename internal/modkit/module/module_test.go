package module

import (
	"strings"
	"testing"

	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
)

type executor interface{ Execute() string }

type orchestrator struct{}

func (orchestrator) Execute() string { return "executed" }

type execPorts struct {
	worker   executor // unexported, never returned
	Executor executor
}

type fakeModule struct{ ports any }

func (f fakeModule) MountRoutes(phttp.Router) {}
func (f fakeModule) Ports() any               { return f.ports }
func (f fakeModule) Name() string             { return "execution" }

func TestPortsOf(t *testing.T) {
	bundle := execPorts{Executor: orchestrator{}}

	if got, ok := PortsOf[execPorts](fakeModule{ports: bundle}); !ok || got.Executor == nil {
		t.Fatalf("whole bundle lookup failed")
	}
	if got, ok := PortsOf[executor](fakeModule{ports: bundle}); !ok || got.Execute() != "executed" {
		t.Fatalf("field lookup failed")
	}
	if _, ok := PortsOf[executor](fakeModule{ports: &bundle}); !ok {
		t.Fatalf("pointer bundle lookup failed")
	}
	if _, ok := PortsOf[executor](fakeModule{ports: execPorts{worker: orchestrator{}}}); ok {
		t.Fatalf("unexported or nil fields must not match")
	}
	if _, ok := PortsOf[executor](fakeModule{}); ok {
		t.Fatalf("nil ports must not match")
	}
	if _, ok := PortsOf[executor](fakeModule{ports: (*execPorts)(nil)}); ok {
		t.Fatalf("nil pointer ports must not match")
	}
}

func TestMustPortsOfNamesTheModule(t *testing.T) {
	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, "execution") || !strings.Contains(msg, "executor") {
			t.Fatalf("panic = %q", msg)
		}
	}()
	MustPortsOf[executor](fakeModule{})
}

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)
	Register("execution", execPorts{Executor: orchestrator{}})

	if p, ok := PortsAs[execPorts]("execution"); !ok || p.Executor == nil {
		t.Fatalf("registered ports not found")
	}
	if _, ok := PortsAs[string]("execution"); ok {
		t.Fatalf("wrong type must not match")
	}
	if _, ok := PortsAs[execPorts]("contributions"); ok {
		t.Fatalf("unknown module must not match")
	}
	Reset()
	if _, ok := PortsAs[execPorts]("execution"); ok {
		t.Fatalf("reset did not clear")
	}
}
