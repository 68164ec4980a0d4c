package attrs

import (
	"errors"
	"fmt"
	"go/token"
	"slices"
	"strings"
	"sync"
)

// MaxAttrs is the maximum number of attributes in one set.
const MaxAttrs = 4096

var (
	// ErrReadOnly is returned when a read-only attribute would be modified.
	ErrReadOnly = errors.New("read-only attribute")
	// ErrNotFound is returned when an attribute does not exist.
	ErrNotFound = errors.New("attribute not found")
	// ErrInvalidName is returned for names that are not identifiers or use
	// a reserved prefix.
	ErrInvalidName = errors.New("invalid attribute name")
	// ErrTooMany is returned when a set would exceed MaxAttrs.
	ErrTooMany = errors.New("too many attributes")
)

var (
	systemNames    = []string{"CLASS", "VERSION", "TITLE", "NROWS", "FLAVOR", "FORMAT_VERSION"}
	systemPrefixes = []string{"FIELD_"}
	readOnlyNames  = []string{"CLASS", "FLAVOR", "VERSION", "FORMAT_VERSION"}
	reserved       = []string{"_c_", "_f_", "_g_", "_v_"}
)

// Kind selects a subset of attribute names in List.
type Kind int

const (
	// User selects attributes set by callers.
	User Kind = iota
	// System selects attributes maintained by storage backends.
	System
	// ReadOnly selects the system attributes that cannot be modified.
	ReadOnly
	// All selects every attribute.
	All
)

func (k Kind) String() string {
	switch k {
	case User:
		return "user"
	case System:
		return "sys"
	case ReadOnly:
		return "readonly"
	case All:
		return "all"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsSystemName reports whether name is a system attribute name.
func IsSystemName(name string) bool {
	if slices.Contains(systemNames, name) {
		return true
	}
	for _, p := range systemPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether name is a read-only attribute name.
func IsReadOnly(name string) bool {
	return slices.Contains(readOnlyNames, name)
}

// CheckName validates an attribute name.
func CheckName(name string) error {
	if !token.IsIdentifier(name) {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidName, name)
	}
	for _, p := range reserved {
		if strings.HasPrefix(name, p) {
			return fmt.Errorf("%w: %q uses reserved prefix %q", ErrInvalidName, name, p)
		}
	}
	return nil
}

// Set is the attribute set of one node. It is safe for concurrent use.
type Set struct {
	node string

	mu     sync.RWMutex
	values map[string]any
	system map[string]bool
}

// New creates an empty set for node.
func New(node string) *Set {
	return &Set{
		node:   node,
		values: make(map[string]any),
		system: make(map[string]bool),
	}
}

// Node returns the path of the node the set belongs to.
func (s *Set) Node() string { return s.node }

// Len returns the number of attributes.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Has reports whether the attribute exists.
func (s *Set) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Get returns the value of an attribute.
func (s *Set) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Set stores a user attribute. It fails for invalid names, read-only
// attributes and when the set is full.
func (s *Set) Set(name string, value any) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if IsReadOnly(name) {
		return fmt.Errorf("%w: %q cannot be overwritten", ErrReadOnly, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(name, value, IsSystemName(name))
}

// SetSystem stores a system attribute, bypassing the read-only check.
// It is meant for storage backends recording what they wrote.
func (s *Set) SetSystem(name string, value any) error {
	if err := CheckName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(name, value, true)
}

func (s *Set) setLocked(name string, value any, system bool) error {
	if _, exists := s.values[name]; !exists && len(s.values) >= MaxAttrs {
		return fmt.Errorf("%w: %q has reached %d attributes", ErrTooMany, s.node, MaxAttrs)
	}
	s.values[name] = value
	if system {
		s.system[name] = true
	} else {
		delete(s.system, name)
	}
	return nil
}

// Remove deletes an attribute.
func (s *Set) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; !ok {
		return fmt.Errorf("%w: %q in node %q", ErrNotFound, name, s.node)
	}
	if IsReadOnly(name) {
		return fmt.Errorf("%w: %q cannot be deleted", ErrReadOnly, name)
	}
	delete(s.values, name)
	delete(s.system, name)
	return nil
}

// Rename moves the value of oldName to newName. Renaming an attribute to
// itself does nothing.
func (s *Set) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	for _, name := range []string{oldName, newName} {
		if IsReadOnly(name) {
			return fmt.Errorf("%w: %q cannot be renamed", ErrReadOnly, name)
		}
	}
	if err := CheckName(newName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[oldName]
	if !ok {
		return fmt.Errorf("%w: %q in node %q", ErrNotFound, oldName, s.node)
	}
	if err := s.setLocked(newName, v, IsSystemName(newName)); err != nil {
		return err
	}
	delete(s.values, oldName)
	delete(s.system, oldName)
	return nil
}

// List returns the sorted names of the selected kind.
func (s *Set) List(kind Kind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.values))
	for name := range s.values {
		sys := s.system[name]
		switch kind {
		case User:
			if sys {
				continue
			}
		case System:
			if !sys {
				continue
			}
		case ReadOnly:
			if !sys || !IsReadOnly(name) {
				continue
			}
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String returns a one-line summary.
func (s *Set) String() string {
	return fmt.Sprintf("%s (AttributeSet), %d attributes", s.node, s.Len())
}

// GetString returns a string attribute.
func (s *Set) GetString(name string) (string, error) {
	v, ok := s.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q in node %q", ErrNotFound, name, s.node)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("attribute %q is %T, not a string", name, v)
	}
	return str, nil
}

// GetInt returns an integer attribute. Decoded documents hold numbers as
// float64; those are accepted when they are integral.
func (s *Set) GetInt(name string) (int, error) {
	v, ok := s.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q in node %q", ErrNotFound, name, s.node)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("attribute %q is not integral: %v", name, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("attribute %q is %T, not an integer", name, v)
	}
}
