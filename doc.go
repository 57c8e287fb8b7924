// Package locator provides a catalog-driven dependency resolution container
// for Go applications.
//
// # Overview
//
// A Locator builds fully constructed instances by type. It knows the types of
// the process through modules, finds the implementations of interfaces and
// abstract classes in that catalog, and wires constructors recursively:
//   - Concrete types are singletons unless marked always-new
//   - Interfaces and abstract classes resolve to their single implementation
//   - Slice parameters receive every implementation
//   - Constructor cycles are refused with the full cycle path
//   - Fields tagged `inject` are assigned after construction, breaking cycles
//   - Value types resolve to their zero value
//
// # Basic Usage
//
// Declare types in a module, create a locator and resolve:
//
//	var StorageModule = locator.NewModule("storage",
//	    locator.Provide(NewDiskStore),
//	    locator.Provide(NewUserService),
//	)
//
//	l := locator.New(locator.WithModules(StorageModule))
//	defer l.Close()
//
//	users, err := locator.Resolve[*UserService](l)
//
// # Types
//
// A class is a pointer to a struct. Its public constructors are functions of
// the form func(deps...) *T or func(deps...) (*T, error); the one with the
// fewest parameters is used, declaration order breaking ties. A class declared
// without constructors gets an implicit one allocating a zero struct.
//
// Embedding marks the other relations:
//
//	type Store struct {
//	    locator.Abstract // never constructed
//	}
//
//	type DiskStore struct {
//	    Store // a subclass of *Store
//	}
//
//	type Request struct {
//	    locator.AlwaysNew // built on every resolution
//	}
//
// # Modules
//
// Modules name the modules they require. Required modules are loaded through
// the ModuleLoader, by default from the process-wide registry:
//
//	func init() {
//	    locator.RegisterModule(locator.NewModule("api",
//	        locator.Requires("storage"),
//	        locator.Provide(NewAPI),
//	    ))
//	}
//
// Modules that fail to load are skipped, and a module whose types cannot all
// be described contributes the ones that can.
//
// # Injection Points
//
// Exported fields tagged `inject` are resolved and assigned once the root
// resolution has finished constructing, so they may point back to a type
// still under construction:
//
//	type Parent struct {
//	    Child *Child `inject:""`
//	}
//
//	func NewChild(p *Parent) *Child
//
// # Thread Safety
//
// A Locator is safe for concurrent use. Each root call owns its resolution
// stack. Two goroutines constructing the same singleton at once may both
// build it; the first one published is kept.
//
// # Validation and Configuration
//
// Validate checks the catalog without constructing anything, reporting
// cycles first and then unresolvable parameters. WriteDOT and WriteText
// render the dependency graph. NewFromConfig builds a locator from a Config
// read by LoadConfig from YAML or by ConfigFromEnv from the environment.
//
// The digbridge package exposes resolved types to a go.uber.org/dig
// container.
//
// # Error Handling
//
// locator provides detailed error types for different failure scenarios:
//   - CircularDependencyError: a type appeared twice on one resolution stack
//   - NoImplementationError and AmbiguousImplementationError
//   - NoPublicConstructorError, InvalidTargetError
//   - UnsupportedParameterShapeError: a map, array, channel or iterator parameter
//   - InvalidOperationError: an unexported injection point
//   - ConstructorError and ConstructorPanicError
package locator
