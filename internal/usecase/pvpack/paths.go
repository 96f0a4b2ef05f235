package pvpack

import "github.com/pcdshub/pytmc/internal/domain"

// TargetPaths lists every element chain that leads from a registered Symbol
// to a leaf variable through SubItems carrying pragmas. Members inherited
// through ExtendsType come before the type's own members. A data type that
// (directly or indirectly) contains itself is not descended into twice.
func TargetPaths(tmc *domain.TmcFile) [][]*domain.Element {
	var out [][]*domain.Element
	for _, sym := range tmc.Symbols.Registered().All() {
		walk(tmc, []*domain.Element{sym}, map[string]bool{}, &out)
	}
	return out
}

func walk(tmc *domain.TmcFile, path []*domain.Element, seen map[string]bool, out *[][]*domain.Element) {
	last := path[len(path)-1]
	children := members(tmc, last.Type, map[string]bool{})
	if len(children) == 0 {
		cp := make([]*domain.Element, len(path))
		copy(cp, path)
		*out = append(*out, cp)
		return
	}
	if seen[last.Type] {
		return
	}
	seen[last.Type] = true
	defer delete(seen, last.Type)

	for _, child := range children {
		if !child.HasConfig() {
			continue
		}
		walk(tmc, append(path, child), seen, out)
	}
}

// members returns the SubItems of a data type, base type members first.
func members(tmc *domain.TmcFile, typeName string, visited map[string]bool) []*domain.Element {
	dt, ok := tmc.DataTypes.Get(typeName)
	if !ok || visited[typeName] {
		return nil
	}
	visited[typeName] = true

	var out []*domain.Element
	if dt.Extends != "" {
		out = append(out, members(tmc, dt.Extends, visited)...)
	}
	return append(out, tmc.Children(typeName)...)
}

// Chains expands a target path into one chain per combination of PVs: each
// element is replaced by copies frozen to a single PV. Order follows the
// PV declaration order, outermost element first. An element without any
// PV yields no chains.
func Chains(path []*domain.Element) [][]*domain.Element {
	if len(path) == 0 {
		return nil
	}
	chains := [][]*domain.Element{{}}
	for _, e := range path {
		pvs := e.PVs()
		next := make([][]*domain.Element, 0, len(chains)*len(pvs))
		for _, chain := range chains {
			for _, pv := range pvs {
				c := make([]*domain.Element, len(chain), len(chain)+1)
				copy(c, chain)
				next = append(next, append(c, e.Frozen(pv)))
			}
		}
		chains = next
	}
	return chains
}
