// Package ikebana provides a small dependency injection container built
// around composable resolver modules.
//
// A Module declares, for each target type, a constructor function. The
// dependencies of a rule are simply the parameters of its constructor;
// they are resolved recursively against the same module tree. An Injector
// pairs a module with a lazily populated, concurrency-safe map from type
// identity to a shared instance (for singleton rules) or a factory (for
// transient rules).
//
// # Basic Usage
//
// Declare rules on a module, create an injector, and resolve:
//
//	m := ikebana.NewModule("app",
//	    ikebana.AddSingleton(NewLogger),
//	    ikebana.AddSingleton(NewUserService),
//	)
//
//	inj, err := ikebana.New(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inj.Close(context.Background())
//
//	svc, err := ikebana.Resolve[*UserService](inj)
//
// # Lifetimes
//
// Two lifetimes are supported:
//
//   - Singleton: the constructor runs at most once per injector; every
//     resolution returns the same shared instance.
//   - Transient: the constructor runs on every resolution; singleton
//     dependencies of a transient value remain shared.
//
// # Composition
//
// Modules compose by delegation. A parent module attaches child modules
// with Use and forwards resolution of the types they provide. The parent's
// own rules are consulted before its delegates. Declaring a rule for a type
// that an attached delegate already provides is a configuration error and
// is rejected at declaration time.
//
//	logMod := ikebana.NewModule("logging", ikebana.AddSingleton(NewLogger))
//	appMod := ikebana.NewModule("app",
//	    ikebana.Use(logMod),
//	    ikebana.AddTransient(NewRequestHandler),
//	)
//
// # Overrides
//
// An explicit instance or replacement constructor may be installed for a
// type before that type's first resolution, which is useful for swapping
// in mocks:
//
//	err := ikebana.Override[Mailer](inj, &fakeMailer{})
//
// Once a type has been resolved its cached result never changes; a late
// override fails with AlreadyResolvedError.
//
// # Circular Dependencies
//
// Cycles between rules are not rejected at declaration time because rules
// are declared independently. They are caught deterministically during
// resolution and reported as a CircularDependencyError naming the full
// chain. The optional Validate method inspects the declared rule graph
// ahead of time and reports statically visible cycles and missing rules.
//
// # Thread Safety
//
// All Injector operations are safe for concurrent use. Resolution is
// serialized internally, so constructors never run concurrently within
// one injector. Constructors receive their dependencies as parameters and
// must not call back into the injector.
package ikebana
