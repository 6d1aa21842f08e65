// Package naming defines the naming convention for the objects in a
// simulation.
package naming

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}
