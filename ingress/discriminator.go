package ingress

import "slices"

// Discriminator decides whether a Format applies to an envelope. It only
// looks at fields, so it is cheap compared to decoding the payload.
type Discriminator interface {
	Match(v View) bool
}

// DiscriminatorFunc adapts a function to Discriminator.
type DiscriminatorFunc func(v View) bool

// Match implements Discriminator.
func (f DiscriminatorFunc) Match(v View) bool { return f(v) }

// HasFields matches when every path exists.
func HasFields(paths ...string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		return !slices.ContainsFunc(paths, func(p string) bool { return !v.HasField(p) })
	})
}

// FieldEquals matches when path holds the string value.
func FieldEquals(path, value string) Discriminator {
	return FieldIn(path, value)
}

// FieldIn matches when path holds one of the given string values.
func FieldIn(path string, values ...string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		s, ok := v.GetString(path)
		return ok && slices.Contains(values, s)
	})
}

// And matches when every discriminator matches. An empty And matches all.
func And(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, d := range ds {
			if !d.Match(v) {
				return false
			}
		}
		return true
	})
}

// Or matches when any discriminator matches. An empty Or matches nothing.
func Or(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, d := range ds {
			if d.Match(v) {
				return true
			}
		}
		return false
	})
}

// Not inverts d.
func Not(d Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool { return !d.Match(v) })
}
