package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidInput is returned when registry input has the wrong shape.
var ErrInvalidInput = errors.New("invalid input")

// Registry maps selectors to descriptors. It is not safe for concurrent
// mutation; lookups may run concurrently once registration is done.
type Registry struct {
	descriptors []Descriptor
	functions   map[Selector]Descriptor
	events      map[common.Hash][]Descriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		functions: make(map[Selector]Descriptor),
		events:    make(map[common.Hash][]Descriptor),
	}
}

type keyed struct {
	desc  Descriptor
	topic common.Hash
}

// keys hashes every named descriptor. A failing descriptor fails the batch.
func keys(descs []Descriptor) ([]keyed, error) {
	out := make([]keyed, 0, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			continue
		}
		topic, err := EventTopic(d)
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", d.Name, err)
		}
		out = append(out, keyed{desc: d.clone(), topic: topic})
	}
	return out, nil
}

func selectorOf(topic common.Hash) Selector {
	var sel Selector
	copy(sel[:], topic[:4])
	return sel
}

// Register adds descriptors. Functions are keyed by 4-byte selector and the
// last registration wins; events are appended to the candidate list of their
// full topic hash.
func (r *Registry) Register(descs []Descriptor) error {
	if descs == nil {
		return fmt.Errorf("%w: expected descriptor list, got nil", ErrInvalidInput)
	}
	entries, err := keys(descs)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.desc.IsEvent() {
			r.events[e.topic] = append(r.events[e.topic], e.desc)
		} else {
			r.functions[selectorOf(e.topic)] = e.desc
		}
	}
	for _, d := range descs {
		r.descriptors = append(r.descriptors, d.clone())
	}
	return nil
}

// RegisterJSON parses an ABI JSON array and registers its entries.
func (r *Registry) RegisterJSON(raw []byte) error {
	descs, err := ParseJSON(raw)
	if err != nil {
		return err
	}
	return r.Register(descs)
}

// ParseJSON decodes an ABI JSON array into descriptors.
func ParseJSON(raw []byte) ([]Descriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected ABI array, got %s", ErrInvalidInput, jsonKind(trimmed))
	}
	var descs []Descriptor
	if err := json.Unmarshal(trimmed, &descs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return descs, nil
}

// Unregister removes descriptors previously registered. Absent entries are
// ignored.
func (r *Registry) Unregister(descs []Descriptor) error {
	if descs == nil {
		return fmt.Errorf("%w: expected descriptor list, got nil", ErrInvalidInput)
	}
	entries, err := keys(descs)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.desc.IsEvent() {
			r.removeEvent(e.topic, e.desc)
		} else {
			sel := selectorOf(e.topic)
			if _, ok := r.functions[sel]; ok {
				delete(r.functions, sel)
			}
		}
		r.removeSaved(e.desc)
	}
	return nil
}

func (r *Registry) removeEvent(topic common.Hash, desc Descriptor) {
	candidates := r.events[topic]
	for i, candidate := range candidates {
		if !reflect.DeepEqual(candidate, desc) {
			continue
		}
		candidates = append(candidates[:i:i], candidates[i+1:]...)
		break
	}
	if len(candidates) == 0 {
		delete(r.events, topic)
		return
	}
	r.events[topic] = candidates
}

func (r *Registry) removeSaved(desc Descriptor) {
	for i, saved := range r.descriptors {
		if reflect.DeepEqual(saved, desc) {
			r.descriptors = append(r.descriptors[:i:i], r.descriptors[i+1:]...)
			return
		}
	}
}

// ResolveFunction returns the function registered for a selector.
func (r *Registry) ResolveFunction(sel Selector) (Descriptor, bool) {
	d, ok := r.functions[sel]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// ResolveEventCandidates returns every event registered for a topic hash, in
// registration order.
func (r *Registry) ResolveEventCandidates(topic common.Hash) []Descriptor {
	candidates := r.events[topic]
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Descriptor, len(candidates))
	for i, d := range candidates {
		out[i] = d.clone()
	}
	return out
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.clone()
	}
	return out
}

func jsonKind(raw []byte) string {
	if len(raw) == 0 {
		return "empty input"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
