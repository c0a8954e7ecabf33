package deployment

type (
	// PostAction is a method call made right after a unit is registered.
	// An empty Target means the unit itself.
	PostAction struct {
		Target string
		Method string
		Args   []Arg
	}

	// Unit is one deployable component of a scenario.
	Unit struct {
		Name       string
		Action     Action
		Args       []Arg
		PostDeploy []PostAction
	}
)

// References lists the names the unit needs registered before it can be
// deployed, in first-use order and without the unit's own name.
func (u Unit) References() []string {
	var refs []string
	seen := map[string]struct{}{u.Name: {}}
	add := func(names ...string) {
		for _, name := range names {
			if _, ok := seen[name]; ok || name == "" {
				continue
			}
			seen[name] = struct{}{}
			refs = append(refs, name)
		}
	}

	if u.Action != nil {
		add(u.Action.References()...)
	}
	for _, arg := range u.Args {
		add(arg.references()...)
	}
	for _, post := range u.PostDeploy {
		add(post.Target)
		for _, arg := range post.Args {
			add(arg.references()...)
		}
	}

	return refs
}

// Artifacts lists the compiled artifacts the unit's action needs.
func (u Unit) Artifacts() []string {
	if u.Action == nil {
		return nil
	}
	return u.Action.Artifacts()
}
