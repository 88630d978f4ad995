package blocks

import "strconv"

// Path locates a value inside a block tree, e.g. "items[2].price".
// The zero Path is the root.
type Path string

// Field appends a struct field name.
func (p Path) Field(name string) Path {
	if p == "" {
		return Path(name)
	}
	return p + "." + Path(name)
}

// Index appends a list or stream index.
func (p Path) Index(i int) Path {
	return p + "[" + Path(strconv.Itoa(i)) + "]"
}

func (p Path) String() string {
	return string(p)
}
