package options

// Option represents a functional option for configuring any type T.
type Option[T any] interface {
	apply(T) error
}

// Validator is implemented by option targets that check their own consistency
// once every option has been applied.
type Validator interface {
	Validate() error
}

// Func is a generic functional option that wraps a function.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates a new functional option from a function.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates a functional option from a function that cannot fail.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies options to target in order and stops at the first error.
//
// Nil options are skipped. If target implements Validator, Validate is called
// after the last option and its error is returned.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	if v, ok := any(target).(Validator); ok {
		return v.Validate()
	}

	return nil
}
