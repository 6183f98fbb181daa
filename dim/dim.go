// Package dim describes named iteration-space dimensions of a kernel
// tree, such as the outer block dimension and the horizontal (column)
// dimension, as configured by the user of the transformation.
package dim

import "strings"

// Dimension is one named iteration space. Size and Index are the names
// of the variables holding its extent and loop counter; Size may be a
// derived-type component path such as geom%blk_dim%nb. Aliases lists
// alternative size names used by individual routines (e.g. klon and
// columns for a horizontal dimension sized nlon).
type Dimension struct {
	Name    string
	Size    string
	Index   string
	Bounds  [2]string
	Aliases []string
}

// IsZero reports whether the dimension is unconfigured.
func (d Dimension) IsZero() bool { return d.Name == "" && d.Size == "" }

// SizeNames returns the size name and all aliases.
func (d Dimension) SizeNames() []string {
	if d.Size == "" {
		return d.Aliases
	}
	return append([]string{d.Size}, d.Aliases...)
}

// MatchesSize reports whether name is the dimension's size or one of
// its aliases (case-insensitive).
func (d Dimension) MatchesSize(name string) bool {
	for _, s := range d.SizeNames() {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// MatchesIndex reports whether name is the dimension's loop counter
// (case-insensitive).
func (d Dimension) MatchesIndex(name string) bool {
	return d.Index != "" && strings.EqualFold(d.Index, name)
}
