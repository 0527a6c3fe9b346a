package objects

import (
	"fmt"

	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// Cell holds at most one game object, by reference.
type Cell struct {
	Type int32
	obj  registry.Link
	set  bool
}

func (c *Cell) Empty() bool { return !c.set }

// Object resolves the stored object.
func (c *Cell) Object(reg *registry.Registry) (*GameObject, bool) {
	if !c.set {
		return nil, false
	}
	e, ok := c.obj.Get(reg)
	if !ok {
		return nil, false
	}
	obj, ok := e.(*GameObject)
	return obj, ok
}

func (c *Cell) put(obj *GameObject) {
	c.obj = registry.NewLink(obj)
	c.set = true
}

func (c *Cell) clear() {
	c.obj = registry.Link{}
	c.set = false
}

func (c *Cell) saveData(w *stream.Writer) {
	w.Bool(c.set)
	if c.set {
		c.obj.Ref.SaveData(w)
	}
}

func (c *Cell) loadData(r *stream.Reader) error {
	set := r.Bool()
	if err := r.Err(); err != nil {
		return err
	}
	if !set {
		c.clear()
		return nil
	}
	ref, err := registry.LoadReference(r)
	if err != nil {
		return err
	}
	c.obj = registry.LinkTo(ref)
	c.set = true
	return nil
}

// CellSet is a rectangular block of cells. Additional cells extend the
// grid beyond its visible size.
type CellSet struct {
	Size       [2]int32
	Additional [2]int32
	CellType   int32
	cells      []Cell
}

func NewCellSet(size, additional [2]int32, cellType int32) *CellSet {
	s := &CellSet{Size: size, Additional: additional, CellType: cellType}
	s.resize()
	return s
}

func (s *CellSet) resize() {
	w := s.Size[0] + s.Additional[0]
	h := s.Size[1] + s.Additional[1]
	n := 0
	if w > 0 && h > 0 {
		n = int(w * h)
	}
	cells := make([]Cell, n)
	copy(cells, s.cells)
	for i := range cells {
		cells[i].Type = s.CellType
	}
	s.cells = cells
}

// Cells returns the cell slice; callers must not resize it.
func (s *CellSet) Cells() []Cell { return s.cells }

func (s *CellSet) put(obj *GameObject) bool {
	for i := range s.cells {
		if s.cells[i].Empty() {
			s.cells[i].put(obj)
			return true
		}
	}
	return false
}

func (s *CellSet) index(obj *GameObject) int {
	ref := registry.ReferenceOf(obj)
	for i := range s.cells {
		if s.cells[i].set && s.cells[i].obj.Ref.Equal(ref) {
			return i
		}
	}
	return -1
}

// SaveData writes the additional cell counts, then every cell.
func (s *CellSet) SaveData(w *stream.Writer) {
	w.Int32(s.Additional[0])
	w.Int32(s.Additional[1])
	for i := range s.cells {
		s.cells[i].saveData(w)
	}
}

// LoadData reads what SaveData wrote. Saves older than
// VersionAdditionalCells carry no additional cell counts.
func (s *CellSet) LoadData(r *stream.Reader, version int) error {
	if err := stream.CheckVersion(version); err != nil {
		return err
	}
	if version >= types.VersionAdditionalCells {
		add := [2]int32{r.Int32(), r.Int32()}
		if err := r.Err(); err != nil {
			return err
		}
		if add[0] < 0 || add[1] < 0 {
			return fmt.Errorf("cell set: invalid additional cells %v", add)
		}
		if add != s.Additional {
			s.Additional = add
			s.resize()
		}
	}
	for i := range s.cells {
		if err := s.cells[i].loadData(r); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return nil
}

// Inventory is a container of cell sets.
type Inventory struct {
	registry.Node
	CellSets []*CellSet
}

func NewInventory(name string, flags uint32, sets []*CellSet) *Inventory {
	inv := &Inventory{Node: registry.NewNode(types.ObjInventory, name), CellSets: sets}
	inv.Flags = flags
	return inv
}

// Put stores obj in the first empty cell. It returns false when the
// inventory is full.
func (inv *Inventory) Put(obj *GameObject) bool {
	if inv.Contains(obj) {
		return true
	}
	for _, s := range inv.CellSets {
		if s.put(obj) {
			obj.SetFlag(types.FlagInInventory)
			obj.inventory = inv.Name
			return true
		}
	}
	return false
}

// Remove takes obj out of the inventory.
func (inv *Inventory) Remove(obj *GameObject) bool {
	for _, s := range inv.CellSets {
		if i := s.index(obj); i >= 0 {
			s.cells[i].clear()
			obj.DropFlag(types.FlagInInventory)
			obj.inventory = ""
			return true
		}
	}
	return false
}

// Contains reports whether obj is stored in any cell.
func (inv *Inventory) Contains(obj *GameObject) bool {
	for _, s := range inv.CellSets {
		if s.index(obj) >= 0 {
			return true
		}
	}
	return false
}

// Objects resolves every stored object in cell order.
func (inv *Inventory) Objects(reg *registry.Registry) []*GameObject {
	var out []*GameObject
	for _, s := range inv.CellSets {
		for i := range s.cells {
			if obj, ok := s.cells[i].Object(reg); ok {
				out = append(out, obj)
			}
		}
	}
	return out
}

func (inv *Inventory) Reset() {
	for _, s := range inv.CellSets {
		for i := range s.cells {
			s.cells[i].clear()
		}
	}
}

func (inv *Inventory) SaveData(w *stream.Writer) {
	w.Int32(int32(len(inv.CellSets)))
	for _, s := range inv.CellSets {
		s.SaveData(w)
	}
}

func (inv *Inventory) LoadData(r *stream.Reader, version int) error {
	n := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) != len(inv.CellSets) {
		return fmt.Errorf("inventory %s: saved %d cell sets, script has %d", inv.Name, n, len(inv.CellSets))
	}
	for i, s := range inv.CellSets {
		if err := s.LoadData(r, version); err != nil {
			return fmt.Errorf("inventory %s: cell set %d: %w", inv.Name, i, err)
		}
	}
	return nil
}
