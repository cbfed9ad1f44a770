package repokit

// Binder binds a domain repo implementation to a specific Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// RequireQueryer panics on a nil Queryer; wiring bug, not a runtime condition
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// MustBind validates q then binds
func MustBind[T any](b Binder[T], q Queryer) T {
	return b.Bind(RequireQueryer(q))
}
