package ikebana

import (
	"encoding/json"
	"fmt"
)

// Lifetime controls when a rule's constructor runs and how its result is
// cached by an Injector.
type Lifetime int

const (
	// Singleton specifies that the constructor runs at most once per
	// injector. The instance is created on first resolution and shared by
	// every subsequent resolution of the same type.
	Singleton Lifetime = iota

	// Transient specifies that the constructor runs on every resolution.
	// Transient values are never cached and never disposed by the
	// injector; their singleton dependencies remain shared.
	Transient
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid reports whether the lifetime is one of the declared constants.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "Transient", "transient":
		*l = Transient
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
