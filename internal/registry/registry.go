package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

type (
	// Entry is the resolved handle of a deployed or referenced component.
	Entry struct {
		Name     string         `json:"name" yaml:"name"`
		Address  common.Address `json:"address" yaml:"address"`
		Artifact string         `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	}

	// Registry maps logical component names to their handles for one run.
	// Names are set once; there is no overwrite and no removal.
	Registry struct {
		entries map[string]Entry
		order   []string
	}
)

// New returns an empty registry for one run.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register records a new entry. A name that is already present fails with
// DuplicateRegistration and the existing entry is kept.
func (r *Registry) Register(entry Entry) error {
	if entry.Name == "" {
		return deployerr.New(deployerr.ErrConfiguration, "registry", errors.New("entry name is empty"))
	}
	if existing, ok := r.entries[entry.Name]; ok {
		return deployerr.Newf(deployerr.ErrDuplicateRegistration, entry.Name, "already registered at %s", existing.Address.Hex())
	}

	r.entries[entry.Name] = entry
	r.order = append(r.order, entry.Name)

	return nil
}

// Lookup fails with DependencyNotReady when name has not been registered.
func (r *Registry) Lookup(name string) (Entry, error) {
	entry, ok := r.entries[name]
	if !ok {
		return Entry{}, deployerr.New(deployerr.ErrDependencyNotReady, name, errors.New("not registered"))
	}
	return entry, nil
}

// Address is Lookup returning only the address.
func (r *Registry) Address(name string) (common.Address, error) {
	entry, err := r.Lookup(name)
	if err != nil {
		return common.Address{}, err
	}
	return entry.Address, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Entries returns registered entries in registration order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entries[name])
	}
	return entries
}

// Len is the number of registered entries.
func (r *Registry) Len() int {
	return len(r.order)
}
