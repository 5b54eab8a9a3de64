package host

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/resource"
)

// link is what crosses from the worker to other goroutines: the queue
// endpoint, the reference count and the export token. It never points at
// the hosted object.
type link struct {
	id     string
	name   string
	loop   *loop
	refs   *refCounter
	table  *resource.UnifiedTable
	token  resource.Handle
	exited <-chan struct{}
}

func exportsOf(table *resource.UnifiedTable) *resource.Typed[*adapter] {
	return resource.NewTyped[*adapter](table, resource.TypeExport)
}

func streamsOf(table *resource.UnifiedTable) *resource.Typed[*stream] {
	return resource.NewTyped[*stream](table, resource.TypeStream)
}

// resolve looks the adapter up by its export token. Worker only.
func (l *link) resolve() (*adapter, error) {
	a, ok := exportsOf(l.table).Get(l.token)
	if !ok || a.state != stateValid {
		return nil, errors.Disconnected(errors.PhaseDispatch)
	}
	return a, nil
}

// stream is the one-shot table entry carrying a link to the requester.
// The entry owns the host's initial reference until it is taken; if the
// table drops it instead, that reference is released.
type stream struct {
	link *link
}

func (s *stream) Drop() {
	_, _ = s.link.refs.release()
}

// marshal publishes the adapter in the export registry and produces the
// transferable handle for it.
func (a *adapter) marshal(id, name string, exited <-chan struct{}) (resource.Handle, error) {
	token, err := exportsOf(a.table).Insert(a)
	if err != nil {
		return 0, handleError(err, "export token")
	}
	a.token = token

	s := &stream{link: &link{
		id:     id,
		name:   name,
		loop:   a.loop,
		refs:   &a.refs,
		table:  a.table,
		token:  token,
		exited: exited,
	}}
	h, err := streamsOf(a.table).Insert(s)
	if err != nil {
		return 0, handleError(err, "stream handle")
	}
	return h, nil
}

func handleError(err error, what string) error {
	kind := errors.KindExhausted
	if stderrors.Is(err, resource.ErrExhausted) {
		kind = errors.KindOutOfMemory
	}
	return errors.Wrap(errors.PhaseMarshal, kind, err, fmt.Sprintf("cannot allocate %s", what))
}

// unmarshal consumes a transferable handle. It succeeds at most once per
// handle.
func unmarshal(table *resource.UnifiedTable, h resource.Handle) (*Ref, error) {
	s, ok := streamsOf(table).Take(h)
	if !ok {
		return nil, errors.NotFound(errors.PhaseUnmarshal, "stream handle", fmt.Sprintf("%#x", uint64(h)))
	}
	return &Ref{link: s.link, capability: CapUnknown}, nil
}
