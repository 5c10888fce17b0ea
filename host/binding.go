// Package host is the external binding boundary: it validates inbound
// values, converts internal errors to tagged host-facing values, and
// exposes the operations a host embedding the index actually calls.
// Per the design, this layer is a thin collaborator — the interesting
// engineering lives in vlist; this package only adapts it to a stable,
// serializable surface.
package host

import (
	"errors"

	"vlistindex/config"
	"vlistindex/metrics"
	"vlistindex/vlerr"
	"vlistindex/vlist"
)

// Error is the tagged, host-facing error value: a stable Kind string
// plus a human-readable Message, carrying no Go-specific error type
// across the boundary.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Kind + ": " + e.Message
}

// toHostError converts an internal vlerr.Error to its tagged host form.
// Any other error (should not occur from vlist, but defends the
// boundary against a future internal change that forgets to tag one)
// is surfaced as InvalidOperation rather than leaking an opaque Go
// error value across the boundary.
func toHostError(err error) error {
	if err == nil {
		return nil
	}
	var ve *vlerr.Error
	if !errors.As(err, &ve) {
		return Error{Kind: string(vlerr.InvalidOperation), Message: err.Error()}
	}
	return Error{Kind: string(ve.Kind), Message: ve.Message}
}

// Binding is the operation surface a host embeds against. Every method
// returns a host.Error (not a bare error) on failure.
type Binding interface {
	TotalSize() float64
	TotalItems() int
	GetItemSize(i int) (float64, error)
	GetPosition(i int) (float64, error)
	GetPositions(indices []int) ([]float64, error)
	UpdateItemSize(i int, size float64) error
	QueueUpdate(i int, size float64) error
	ProcessPendingUpdates() error
	BatchUpdateSizes(updates []vlist.Update) error
	GetVisibleRange(scroll, viewport float64) (vlist.VisibleRange, error)
	Resize(n int) error
	AddItems(count int) error
	RemoveItems(count int) error
	UnloadChunk(c int) error
	ClearCache() error
	Stats() metrics.Snapshot
}

// binding adapts a *vlist.VirtualList to Binding, translating every
// returned error to the host-tagged form.
type binding struct {
	list *vlist.VirtualList
}

// New constructs a host binding over a freshly created index.
func New(n, chunkSize int, estimatedSize float64, orientation vlist.Orientation, cfg config.Config) (Binding, error) {
	list, err := vlist.New(n, chunkSize, estimatedSize, orientation, cfg)
	if err != nil {
		return nil, toHostError(err)
	}
	return &binding{list: list}, nil
}

func (b *binding) TotalSize() float64 { return b.list.TotalSize() }
func (b *binding) TotalItems() int    { return b.list.TotalItems() }

func (b *binding) GetItemSize(i int) (float64, error) {
	s, err := b.list.GetItemSize(i)
	return s, toHostError(err)
}

func (b *binding) GetPosition(i int) (float64, error) {
	p, err := b.list.GetPosition(i)
	return p, toHostError(err)
}

func (b *binding) GetPositions(indices []int) ([]float64, error) {
	p, err := b.list.GetPositions(indices)
	return p, toHostError(err)
}

func (b *binding) UpdateItemSize(i int, size float64) error {
	return toHostError(b.list.UpdateItemSize(i, size))
}

func (b *binding) QueueUpdate(i int, size float64) error {
	return toHostError(b.list.QueueUpdate(i, size))
}

func (b *binding) ProcessPendingUpdates() error {
	return toHostError(b.list.ProcessPendingUpdates())
}

func (b *binding) BatchUpdateSizes(updates []vlist.Update) error {
	return toHostError(b.list.BatchUpdateSizes(updates))
}

func (b *binding) GetVisibleRange(scroll, viewport float64) (vlist.VisibleRange, error) {
	r, err := b.list.GetVisibleRange(scroll, viewport)
	return r, toHostError(err)
}

func (b *binding) Resize(n int) error {
	return toHostError(b.list.Resize(n))
}

func (b *binding) AddItems(count int) error {
	return toHostError(b.list.AddItems(count))
}

func (b *binding) RemoveItems(count int) error {
	return toHostError(b.list.RemoveItems(count))
}

func (b *binding) UnloadChunk(c int) error {
	return toHostError(b.list.UnloadChunk(c))
}

func (b *binding) ClearCache() error {
	return toHostError(b.list.ClearCache())
}

func (b *binding) Stats() metrics.Snapshot {
	return b.list.Stats()
}
