package try

// Fataler is anything with a Fatal method, like *testing.T or log.Logger.
type Fataler interface {
	Fatal(...any)
}

// Either wraps a (value, error) pair from a fallible call.
type Either[T any] struct {
	value T
	err   error
}

func To[T any](ok T, ng error) Either[T] {
	return Either[T]{value: ok, err: ng}
}

func (e Either[T]) Get() (T, error) {
	return e.value, e.err
}

// OrFatal returns the value, or calls ftl.Fatal with the wrapped error.
// If ftl has a Helper method (think *testing.T), it is called first.
func (e Either[T]) OrFatal(ftl Fataler) T {
	if e.err != nil {
		if hlp, ok := ftl.(interface{ Helper() }); ok {
			hlp.Helper()
		}
		ftl.Fatal(e.err)
	}
	return e.value
}

func (e Either[T]) OrDefault(d T) T {
	if e.err != nil {
		return d
	}
	return e.value
}
