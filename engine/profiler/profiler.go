// Package profiler records every trigger chain status change so a session
// can be inspected afterwards and replayed up to any record.
package profiler

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/engine/trigger"
	"github.com/nathoo/questlogic/types"
)

// DefaultWorkFile is used when no work file is configured.
const DefaultWorkFile = "trigger_profiler.dat"

// Event is the kind of status change a record describes.
type Event int32

const (
	ElementStatusUpdate Event = iota
	ParentLinkStatusUpdate
	ChildLinkStatusUpdate
)

// Record is one status change. For link events Element is the element the
// link is seen from and Link is the element at its other end.
type Record struct {
	Time    uint32 // milliseconds of game time
	Event   Event
	Chain   int32 // chain index in registration order
	Element int32
	Link    int32
	Status  int32
}

const recordSize = 24

// Profiler implements trigger.Observer.
type Profiler struct {
	Records []Record

	chains    []*trigger.Chain
	reg       *registry.Registry
	clock     func() float64
	enabled   bool
	replaying bool
	log       *zap.Logger
}

// New returns a disabled profiler.
func New(log *zap.Logger) *Profiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Profiler{log: log, clock: func() float64 { return 0 }}
}

// Attach installs the profiler as observer of chains. clock returns the
// current game time in seconds.
func (p *Profiler) Attach(chains []*trigger.Chain, reg *registry.Registry, clock func() float64) {
	p.chains = chains
	p.reg = reg
	if clock != nil {
		p.clock = clock
	}
	for _, c := range chains {
		c.SetObserver(p)
	}
}

func (p *Profiler) Enable(v bool) { p.enabled = v }
func (p *Profiler) Enabled() bool { return p.enabled }

// Clear drops every record.
func (p *Profiler) Clear() { p.Records = p.Records[:0] }

func (p *Profiler) now() uint32 {
	t := p.clock()
	if t < 0 {
		return 0
	}
	return uint32(t*1000 + 0.5)
}

func (p *Profiler) add(r Record) {
	if !p.enabled || p.replaying {
		return
	}
	r.Time = p.now()
	p.Records = append(p.Records, r)
}

func (p *Profiler) ElementChanged(c *trigger.Chain, e *trigger.Element) {
	p.add(Record{Event: ElementStatusUpdate, Chain: int32(c.Index), Element: e.ID, Status: int32(e.Status())})
}

func (p *Profiler) LinkChanged(c *trigger.Chain, l *trigger.Link) {
	p.add(Record{Event: ChildLinkStatusUpdate, Chain: int32(c.Index), Element: l.From.ID, Link: l.To.ID, Status: int32(l.Status())})
}

// Save writes the record count followed by fixed-width records.
func (p *Profiler) Save(out io.Writer) error {
	w := stream.NewWriter()
	w.Uint32(uint32(len(p.Records)))
	for _, r := range p.Records {
		w.Uint32(r.Time)
		w.Int32(int32(r.Event))
		w.Int32(r.Chain)
		w.Int32(r.Element)
		w.Int32(r.Link)
		w.Int32(r.Status)
	}
	if err := w.Err(); err != nil {
		return err
	}
	_, err := out.Write(w.Data())
	return err
}

// Load replaces the records with those read from in.
func (p *Profiler) Load(in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	r := stream.NewReader(data)
	n := r.Uint32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) > r.Remaining()/recordSize {
		return fmt.Errorf("profiler: %d records do not fit in %d bytes", n, r.Remaining())
	}
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{
			Time:    r.Uint32(),
			Event:   Event(r.Int32()),
			Chain:   r.Int32(),
			Element: r.Int32(),
			Link:    r.Int32(),
			Status:  r.Int32(),
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	p.Records = recs
	return nil
}

// SaveWorkFile writes the records to path.
func (p *Profiler) SaveWorkFile(path string) error {
	if path == "" {
		path = DefaultWorkFile
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	if err := p.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("profiler: writing %s: %w", path, err)
	}
	p.log.Info("trigger profile saved", zap.String("file", path), zap.Int("records", len(p.Records)))
	return f.Close()
}

// LoadWorkFile reads records from path.
func (p *Profiler) LoadWorkFile(path string) error {
	if path == "" {
		path = DefaultWorkFile
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	defer f.Close()
	if err := p.Load(f); err != nil {
		return fmt.Errorf("profiler: reading %s: %w", path, err)
	}
	return nil
}

func (p *Profiler) chain(r Record) *trigger.Chain {
	if r.Chain < 0 || int(r.Chain) >= len(p.chains) {
		return nil
	}
	return p.chains[r.Chain]
}

// Evolve resets every chain and replays records 0..n onto them. Replayed
// statuses are applied directly; payloads are not started, but waiting
// elements are armed again so the chains keep running afterwards.
func (p *Profiler) Evolve(n int) error {
	if n < 0 || n >= len(p.Records) {
		return fmt.Errorf("profiler: record %d out of range [0, %d)", n, len(p.Records))
	}
	p.replaying = true
	defer func() { p.replaying = false }()

	for _, c := range p.chains {
		c.Reset(p.reg)
	}
	for i := 0; i <= n; i++ {
		r := p.Records[i]
		c := p.chain(r)
		if c == nil {
			p.log.Warn("profile record for unknown chain", zap.Int("record", i), zap.Int32("chain", r.Chain))
			continue
		}
		var ok bool
		switch r.Event {
		case ElementStatusUpdate:
			ok = c.RestoreElement(r.Element, types.ElementStatus(r.Status))
		case ChildLinkStatusUpdate:
			ok = c.RestoreLink(r.Element, r.Link, types.LinkStatus(r.Status))
		case ParentLinkStatusUpdate:
			ok = c.RestoreLink(r.Link, r.Element, types.LinkStatus(r.Status))
		}
		if !ok {
			p.log.Warn("profile record does not match chain", zap.Int("record", i), zap.String("chain", c.Name))
		}
	}
	for _, c := range p.chains {
		c.Rearm(p.reg)
	}
	return nil
}

var elementStatusText = map[types.ElementStatus]string{
	types.ElementInactive: "trigger off",
	types.ElementWaiting:  "trigger waiting",
	types.ElementWorking:  "trigger working",
	types.ElementDone:     "trigger done",
}

var linkStatusText = map[types.LinkStatus]string{
	types.LinkInactive: "link off",
	types.LinkActive:   "link on",
	types.LinkDone:     "link done",
}

// Text renders a record as "HH:MM:SS:hh [chain] status element".
func (p *Profiler) Text(r Record) string {
	var b strings.Builder
	ms := r.Time
	fmt.Fprintf(&b, "%02d:%02d:%02d:%02d ", ms/3600000, ms%3600000/60000, ms%60000/1000, ms%1000/10)

	c := p.chain(r)
	if c != nil && c.Name != "" {
		fmt.Fprintf(&b, "[%s] ", c.Name)
	}

	switch r.Event {
	case ElementStatusUpdate:
		b.WriteString(elementStatusText[types.ElementStatus(r.Status)])
	default:
		b.WriteString(linkStatusText[types.LinkStatus(r.Status)])
	}
	b.WriteByte(' ')

	if c == nil {
		return b.String()
	}
	switch r.Event {
	case ElementStatusUpdate:
		b.WriteString(p.elementText(c.Element(r.Element)))
	case ChildLinkStatusUpdate:
		b.WriteString(p.elementText(c.Element(r.Element)) + " -> " + p.elementText(c.Element(r.Link)))
	case ParentLinkStatusUpdate:
		b.WriteString(p.elementText(c.Element(r.Link)) + " -> " + p.elementText(c.Element(r.Element)))
	}
	return b.String()
}

func (p *Profiler) elementText(e *trigger.Element) string {
	if e == nil {
		return "???"
	}
	if e.Passthrough() {
		if e.ID == trigger.RootID {
			return "start"
		}
		return fmt.Sprintf("#%d", e.ID)
	}
	if obj, ok := e.Payload.Get(p.reg); ok {
		return obj.Base().Path()
	}
	return e.Payload.Ref.String()
}
