package proto

import "fmt"

// MismatchError reports that a response of the wrong variant arrived.
type MismatchError struct {
	Want Type
	Got  Message
}

func (e *MismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("protocol mismatch: want %s, got nothing", e.Want)
	}
	return fmt.Sprintf("protocol mismatch: want %s, got %s", e.Want, e.Got.Type())
}

// Expect returns m as T, or a *MismatchError when m is another variant.
func Expect[T Message](m Message) (T, error) {
	if v, ok := m.(T); ok {
		return v, nil
	}
	var zero T
	return zero, &MismatchError{Want: zero.Type(), Got: m}
}
