// Package memory provides an in-memory create-only destination store.
//
// The store enforces the same contract as the cloud backends: objects are
// never overwritten, compose requires existing inputs and respects a maximum
// input count. It records every call and supports failure injection, which
// makes it the reference destination for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// Operations recorded in the call log.
const (
	OpCreate  = "create"
	OpCompose = "compose"
)

// DefaultMaxComposeInputs matches the GCS compose limit.
const DefaultMaxComposeInputs = 32

// Call is one recorded store call.
type Call struct {
	Op     string
	Bucket string
	Name   string
	Inputs []string
	Err    error
}

type object struct {
	data        []byte
	contentType string
}

// Store is an in-memory storeapi.Destination. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	buckets   map[string]map[string]*object
	maxInputs int
	calls     []Call
	failNext  map[string][]error
	hook      func(Call) error
}

// Option configures a Store.
type Option func(*Store)

// WithMaxComposeInputs sets the compose input limit.
func WithMaxComposeInputs(n int) Option {
	return func(s *Store) {
		s.maxInputs = n
	}
}

// WithHook installs fn, called before every operation. A non-nil return fails the call.
// fn runs with the store unlocked.
func WithHook(fn func(Call) error) Option {
	return func(s *Store) {
		s.hook = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		buckets:   make(map[string]map[string]*object),
		maxInputs: DefaultMaxComposeInputs,
		failNext:  make(map[string][]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNext makes the next n calls of op fail with err.
func (s *Store) FailNext(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failNext[op] = append(s.failNext[op], err)
	}
}

// MaxComposeInputs implements storeapi.Destination.
func (s *Store) MaxComposeInputs() int {
	return s.maxInputs
}

// Create implements storeapi.Destination.
func (s *Store) Create(
	ctx context.Context,
	bucket, name string,
	data []byte,
	opts storeapi.CreateOptions,
) (*storeapi.ObjectInfo, error) {
	call := Call{Op: OpCreate, Bucket: bucket, Name: name}
	if err := s.before(ctx, call); err != nil {
		return nil, s.record(call, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects := s.bucket(bucket)
	if _, exists := objects[name]; exists {
		return nil, s.recordLocked(call, fmt.Errorf("create %s/%s: %w", bucket, name, storeapi.ErrAlreadyExists))
	}

	objects[name] = &object{data: bytes.Clone(data), contentType: opts.ContentType}
	s.recordLocked(call, nil)

	return &storeapi.ObjectInfo{Name: name, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

// Compose implements storeapi.Destination.
func (s *Store) Compose(
	ctx context.Context,
	bucket, name string,
	sources []string,
	opts storeapi.ComposeOptions,
) (*storeapi.ObjectInfo, error) {
	call := Call{Op: OpCompose, Bucket: bucket, Name: name, Inputs: append([]string(nil), sources...)}
	if err := s.before(ctx, call); err != nil {
		return nil, s.record(call, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(sources) == 0:
		return nil, s.recordLocked(call, fmt.Errorf("compose %s/%s: %w", bucket, name, storeapi.ErrNoInputs))
	case len(sources) > s.maxInputs:
		return nil, s.recordLocked(call, fmt.Errorf("compose %s/%s with %d inputs (max %d): %w",
			bucket, name, len(sources), s.maxInputs, storeapi.ErrTooManyInputs))
	}

	objects := s.bucket(bucket)
	var buf bytes.Buffer
	for _, src := range sources {
		obj, ok := objects[src]
		if !ok {
			return nil, s.recordLocked(call, fmt.Errorf("compose input %s/%s: %w", bucket, src, storeapi.ErrObjectNotFound))
		}
		buf.Write(obj.data)
	}
	if _, exists := objects[name]; exists {
		return nil, s.recordLocked(call, fmt.Errorf("compose %s/%s: %w", bucket, name, storeapi.ErrAlreadyExists))
	}

	objects[name] = &object{data: buf.Bytes(), contentType: opts.ContentType}
	s.recordLocked(call, nil)

	return &storeapi.ObjectInfo{Name: name, Size: int64(buf.Len()), ContentType: opts.ContentType}, nil
}

// Object returns a copy of an object's bytes.
func (s *Store) Object(bucket, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// ContentType returns the content type an object was created with.
func (s *Store) ContentType(bucket, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.buckets[bucket][name]; ok {
		return obj.contentType
	}
	return ""
}

// Names returns the sorted object names of bucket.
func (s *Store) Names(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buckets[bucket]))
	for name := range s.buckets[bucket] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calls returns a copy of the call log.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsOf returns the successful calls of op, in order.
func (s *Store) CallsOf(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op && c.Err == nil {
			out = append(out, c)
		}
	}
	return out
}

// MaxInputsSeen returns the largest input count of any compose call, failed or not.
func (s *Store) MaxInputsSeen() int {
	var maxSeen int
	for _, c := range s.Calls() {
		if c.Op == OpCompose && len(c.Inputs) > maxSeen {
			maxSeen = len(c.Inputs)
		}
	}
	return maxSeen
}

func (s *Store) before(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.hook != nil {
		if err := s.hook(call); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if queue := s.failNext[call.Op]; len(queue) > 0 {
		s.failNext[call.Op] = queue[1:]
		return queue[0]
	}
	return nil
}

func (s *Store) bucket(name string) map[string]*object {
	objects, ok := s.buckets[name]
	if !ok {
		objects = make(map[string]*object)
		s.buckets[name] = objects
	}
	return objects
}

func (s *Store) record(call Call, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(call, err)
}

func (s *Store) recordLocked(call Call, err error) error {
	call.Err = err
	s.calls = append(s.calls, call)
	return err
}
