package encoder

import (
	"fmt"
	"strings"
)

// Registry maps output format names to encoders. Formats are listed in
// registration order.
type Registry struct {
	encoders map[string]Encoder
	order    []string
}

// NewRegistry returns a registry holding PNG (the default) and lossless
// WebP.
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	r.Register(&PNGEncoder{})
	r.Register(&WebPEncoder{})
	return r
}

// Register adds enc under its format name, replacing any previous encoder
// for that format.
func (r *Registry) Register(enc Encoder) {
	f := strings.ToLower(enc.Format())
	if _, ok := r.encoders[f]; !ok {
		r.order = append(r.order, f)
	}
	r.encoders[f] = enc
}

// Get returns the encoder for format, or nil.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[strings.ToLower(format)]
}

// Lookup is Get with an error for unknown formats.
func (r *Registry) Lookup(format string) (Encoder, error) {
	if enc := r.Get(format); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("no encoder for format %q (available: %s)", format, r)
}

// Available returns the registered format names.
func (r *Registry) Available() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) String() string {
	if len(r.order) == 0 {
		return "none"
	}
	return strings.Join(r.order, ", ")
}
