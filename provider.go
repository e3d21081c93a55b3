package ikebana

// provider produces an instance for one slot of the injector's type map.
// Providers are only ever invoked while the injector's mutex is held.
type provider interface {
	provide(rc *resolutionContext) (any, error)
}

// newProvider picks the provider implementation for a rule.
func newProvider(b *binding) provider {
	if b.Lifetime == Transient {
		return &transientProvider{binding: b}
	}
	return &singletonProvider{binding: b}
}

// instanceProvider returns a fixed, caller-owned value. Used for
// overrides installed with Override.
type instanceProvider struct {
	value any
}

func (p *instanceProvider) provide(*resolutionContext) (any, error) {
	return p.value, nil
}

// singletonProvider constructs its value on first use and returns the
// shared instance afterwards. A failed construction leaves the provider
// unbuilt so a later resolution can retry.
type singletonProvider struct {
	binding *binding
	built   bool
	value   any
}

func (p *singletonProvider) provide(rc *resolutionContext) (any, error) {
	if p.built {
		return p.value, nil
	}

	value, err := rc.construct(p.binding)
	if err != nil {
		return nil, err
	}

	p.built = true
	p.value = value

	// Instance rules are caller-owned and never disposed by the injector.
	if !p.binding.isInstance {
		rc.inj.track(value)
	}

	return value, nil
}

// transientProvider runs the constructor on every resolution. The
// resulting values are owned by the caller.
type transientProvider struct {
	binding *binding
}

func (p *transientProvider) provide(rc *resolutionContext) (any, error) {
	return rc.construct(p.binding)
}
