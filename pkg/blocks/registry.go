package blocks

// RegistryBuilder collects block types before they are frozen into a Registry.
type RegistryBuilder struct {
	order []string
	types map[string]*BlockType
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{types: make(map[string]*BlockType)}
}

// Register adds a block type under name. The name becomes the discriminator
// used in streams. Registering a name twice returns a *DuplicateNameError.
func (b *RegistryBuilder) Register(name string, bt *BlockType) error {
	if name == "" {
		return &SchemaError{Reason: "empty block name"}
	}
	if _, ok := b.types[name]; ok {
		return &DuplicateNameError{Path: name, Name: name}
	}
	if err := bt.check(Path(name)); err != nil {
		return err
	}
	b.types[name] = bt
	b.order = append(b.order, name)
	return nil
}

// MustRegister is Register for package level schema definitions; it panics on
// error.
func (b *RegistryBuilder) MustRegister(name string, bt *BlockType) *RegistryBuilder {
	if err := b.Register(name, bt); err != nil {
		panic(err)
	}
	return b
}

// Build freezes the registered types. The builder may be reused afterwards
// without affecting the returned registry.
func (b *RegistryBuilder) Build() *Registry {
	r := &Registry{
		order: append([]string(nil), b.order...),
		types: make(map[string]*BlockType, len(b.types)),
	}
	for k, v := range b.types {
		r.types[k] = v
	}
	return r
}

// Registry maps block names to block types. It is immutable and safe for
// concurrent use.
type Registry struct {
	order []string
	types map[string]*BlockType
}

// Resolve returns the block type registered under name.
func (r *Registry) Resolve(name string) (*BlockType, error) {
	if r != nil {
		if bt, ok := r.types[name]; ok {
			return bt, nil
		}
	}
	return nil, &UnknownBlockError{Name: name}
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len returns the number of registered block types.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
