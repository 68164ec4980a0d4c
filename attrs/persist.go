package attrs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/codec"
)

// ErrUnknownCodec is returned when a document names a codec that is not
// built in.
var ErrUnknownCodec = errors.New("unknown attribute codec")

type document struct {
	Node   string         `json:"node"`
	System []string       `json:"system,omitempty"`
	Attrs  map[string]any `json:"attrs"`
}

// Marshal encodes the set with c (codec.Default when nil).
func (s *Set) Marshal(c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	s.mu.RLock()
	doc := document{Node: s.node, Attrs: make(map[string]any, len(s.values))}
	for name, v := range s.values {
		doc.Attrs[name] = v
	}
	s.mu.RUnlock()
	doc.System = s.List(System)

	payload, err := c.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("attrs: encode %s: %w", s.node, err)
	}

	out := make([]byte, 0, len(c.Name())+1+len(payload))
	out = append(out, c.Name()...)
	out = append(out, '\n')
	return append(out, payload...), nil
}

// Unmarshal decodes a set written by Marshal. Names with a system prefix
// are classified as system attributes even when the document does not
// list them.
func Unmarshal(data []byte) (*Set, error) {
	name, payload, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, fmt.Errorf("attrs: missing codec header")
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	var doc document
	if err := c.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("attrs: decode: %w", err)
	}
	if len(doc.Attrs) > MaxAttrs {
		return nil, fmt.Errorf("%w: %q has %d attributes", ErrTooMany, doc.Node, len(doc.Attrs))
	}

	s := New(doc.Node)
	for name, v := range doc.Attrs {
		s.values[name] = v
		if IsSystemName(name) {
			s.system[name] = true
		}
	}
	for _, name := range doc.System {
		if _, ok := s.values[name]; ok {
			s.system[name] = true
		}
	}
	return s, nil
}

// Load reads the set stored under name.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*Set, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Save writes the set under name with c (codec.Default when nil).
func Save(ctx context.Context, store blobstore.BlobStore, name string, s *Set, c codec.Codec) error {
	data, err := s.Marshal(c)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}
