package fund

import (
	"errors"
	"fmt"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
)

type (
	// Phase is one initialization call. Phases run strictly by Index,
	// starting at 0, each only after its predecessor succeeded. An empty
	// Target means the plan's factory.
	Phase struct {
		Index  int
		Target string
		Method string
		Args   []deployment.Arg
	}

	// Plan describes how a fund is created under a factory and brought to operation.
	Plan struct {
		Factory      string
		CreateMethod string
		Name         string
		Artifact     string
		Phases       []Phase
		Terminal     string
		ProxyMethod  string
		ProxyName    string
	}
)

// Validate checks the plan shape. Phase indices must be 0..K-1 in order.
func (p Plan) Validate() error {
	var errs []error

	if p.Factory == "" {
		errs = append(errs, errors.New("factory is required"))
	}
	if p.CreateMethod == "" {
		errs = append(errs, errors.New("create method is required"))
	}
	if p.Name == "" {
		errs = append(errs, errors.New("fund name is required"))
	}
	if p.Artifact == "" {
		errs = append(errs, errors.New("fund artifact is required"))
	}
	if p.Terminal == "" {
		errs = append(errs, errors.New("terminal method is required"))
	}
	if len(p.Phases) == 0 {
		errs = append(errs, errors.New("at least one phase is required"))
	}
	for i, phase := range p.Phases {
		if phase.Index != i {
			errs = append(errs, fmt.Errorf("phase at position %d has index %d", i, phase.Index))
		}
		if phase.Method == "" {
			errs = append(errs, fmt.Errorf("phase %d has no method", i))
		}
	}
	if p.ProxyMethod != "" && p.ProxyName == "" {
		errs = append(errs, errors.New("proxy name is required with a proxy method"))
	}

	if len(errs) > 0 {
		return deployerr.New(deployerr.ErrConfiguration, "fund plan", errors.Join(errs...))
	}
	return nil
}

// References lists the registry names the plan needs before the fund is
// created. The fund's own name is excluded because creation registers it.
func (p Plan) References() []string {
	var refs []string
	seen := map[string]struct{}{p.Name: {}, "": {}}
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		refs = append(refs, name)
	}

	add(p.Factory)
	for _, phase := range p.Phases {
		add(phase.Target)
		unit := deployment.Unit{Args: phase.Args}
		for _, ref := range unit.References() {
			add(ref)
		}
	}

	return refs
}

func (p Plan) target(phase Phase) string {
	if phase.Target == "" {
		return p.Factory
	}
	return phase.Target
}
