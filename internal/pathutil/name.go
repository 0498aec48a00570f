package pathutil

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxNameLen is the longest entry name the device accepts, in characters.
const MaxNameLen = 255

// ErrInvalidName is matched by every error returned from ValidName.
var ErrInvalidName = errors.New("invalid name")

// NameError describes why a name was rejected.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

func (e *NameError) Unwrap() error { return ErrInvalidName }

// ValidName checks a single file or directory name before it is sent to the
// device. It rejects empty and over-long names, the characters
// < > : " / \ | ? *, control bytes 0x00-0x1F and the names "." and "..".
func ValidName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return &NameError{Name: name, Reason: "empty"}
	}
	if n > MaxNameLen {
		return &NameError{Name: name, Reason: fmt.Sprintf("length %d exceeds %d", n, MaxNameLen)}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 {
			return &NameError{Name: name, Reason: fmt.Sprintf("control character 0x%02x", c)}
		}
		switch c {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return &NameError{Name: name, Reason: fmt.Sprintf("invalid character %q", c)}
		}
	}
	if name == "." || name == ".." {
		return &NameError{Name: name, Reason: "reserved name"}
	}
	return nil
}
