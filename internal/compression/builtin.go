package compression

// Builtin returns the compiled-in processors in registration order. The
// registry sorts them by priority.
func Builtin(cfg Config) []Processor {
	return []Processor{
		PackageList{},
		Network{},
		Terraform{},
		Search{},
		NewGeneric(cfg),
	}
}

// NewBuiltinService builds a service over the compiled-in processors.
func NewBuiltinService(cfg Config, opts ...Option) (*Service, error) {
	registry, err := NewRegistry(Builtin(cfg)...)
	if err != nil {
		return nil, err
	}
	return NewService(registry, cfg, opts...)
}
