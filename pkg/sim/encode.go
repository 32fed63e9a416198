package sim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/scangen/pkg/layout"
)

// MaxFieldWidth is the widest instance an Assignment can carry.
const MaxFieldWidth = 64

// Assignment sets one instance of a cell.
type Assignment struct {
	Cell  string // short or full name
	Index int
	Value uint64
}

func (a Assignment) String() string {
	return fmt.Sprintf("%s[%d]=%#x", a.Cell, a.Index, a.Value)
}

var assignmentRegexp = regexp.MustCompile(`^(\w+)(?:\[(\d+)\])?=(\S+)$`)

// ParseAssignment reads "cell=value" or "cell[idx]=value". The value takes
// any prefix strconv understands (0x, 0b, 0o).
func ParseAssignment(s string) (Assignment, error) {
	m := assignmentRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Assignment{}, fmt.Errorf("sim: bad assignment %q, want cell[idx]=value", s)
	}
	a := Assignment{Cell: m[1]}
	if m[2] != "" {
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return Assignment{}, fmt.Errorf("sim: bad index in %q: %w", s, err)
		}
		a.Index = idx
	}
	v, err := strconv.ParseUint(m[3], 0, 64)
	if err != nil {
		return Assignment{}, fmt.Errorf("sim: bad value in %q: %w", s, err)
	}
	a.Value = v
	return a, nil
}

// Vector places assignments on a TotalLength-bit bus image. Unassigned bits
// are zero.
func Vector(c *layout.Chain, assigns ...Assignment) ([]bool, error) {
	vec := make([]bool, c.TotalLength)
	for _, a := range assigns {
		cell, ok := c.Cell(a.Cell)
		if !ok {
			return nil, fmt.Errorf("sim: unknown cell %q", a.Cell)
		}
		lo, _, err := cell.InstanceRange(a.Index)
		if err != nil {
			return nil, err
		}
		if cell.Width > MaxFieldWidth {
			return nil, fmt.Errorf("sim: %s is %d bits wide, max %d", cell.FullName, cell.Width, MaxFieldWidth)
		}
		if cell.Width < MaxFieldWidth && a.Value>>uint(cell.Width) != 0 {
			return nil, fmt.Errorf("sim: value %#x does not fit %s (%d bits)", a.Value, cell.FullName, cell.Width)
		}
		for k := 0; k < cell.Width; k++ {
			vec[lo+k] = a.Value>>uint(k)&1 == 1
		}
	}
	return vec, nil
}

// Encode returns the serial stream that leaves the assignments in the shift
// register, first bit first. The first bit shifted in ends at the MSB, so
// stream[k] is bus bit TotalLength-1-k.
func Encode(c *layout.Chain, assigns ...Assignment) ([]bool, error) {
	vec, err := Vector(c, assigns...)
	if err != nil {
		return nil, err
	}
	return reverse(vec), nil
}

// Decode splits a stream produced by Encode, or read back from SOut after
// TotalLength clocks, into one Assignment per cell instance in layout order.
func Decode(c *layout.Chain, stream []bool) ([]Assignment, error) {
	if len(stream) != c.TotalLength {
		return nil, fmt.Errorf("sim: stream has %d bits, chain has %d", len(stream), c.TotalLength)
	}
	vec := reverse(stream)

	var out []Assignment
	for _, cell := range c.Cells {
		if cell.Width > MaxFieldWidth {
			return nil, fmt.Errorf("sim: %s is %d bits wide, max %d", cell.FullName, cell.Width, MaxFieldWidth)
		}
		for idx := 0; idx < cell.Mult; idx++ {
			lo, hi, err := cell.InstanceRange(idx)
			if err != nil {
				return nil, err
			}
			var v uint64
			for i := hi; i >= lo; i-- {
				v <<= 1
				if vec[i] {
					v |= 1
				}
			}
			out = append(out, Assignment{Cell: cell.Name, Index: idx, Value: v})
		}
	}
	return out, nil
}

// Load shifts the encoded assignments into s and, for latched chains, pulses
// Update. It returns what came out on SOut.
func Load(s *Simulator, assigns ...Assignment) ([]bool, error) {
	stream, err := Encode(s.chain, assigns...)
	if err != nil {
		return nil, err
	}
	out := s.Shift(stream)
	if s.chain.ConfigLatch {
		s.Update()
	}
	return out, nil
}

// FormatBits renders bits as a 0/1 string in slice order.
func FormatBits(bits []bool) string {
	var b strings.Builder
	b.Grow(len(bits))
	for _, v := range bits {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func reverse(bits []bool) []bool {
	out := make([]bool, len(bits))
	for i, b := range bits {
		out[len(bits)-1-i] = b
	}
	return out
}
