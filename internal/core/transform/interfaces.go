// Package transform holds the math contract the scene graph consumes and a
// small 2D implementation of it.
package transform

// Composer is everything the scene graph needs from a transform type. The
// graph never looks inside T.
type Composer[T any] interface {
	// Identity is the world transform of the scene root.
	Identity() T
	// Compose returns the world transform of a node whose parent resolves to
	// parentWorld and whose own transform is local.
	Compose(parentWorld, local T) T
}

// Vector2 represents a 2D vector.
type Vector2 interface {
	X() float64
	Y() float64
}

// Positioned exposes a translation component.
type Positioned interface {
	Position2() (x, y float64)
}
