// Package sim is a bit-accurate model of the RTL produced for a laid-out
// scan chain.
//
// The whole chain behaves as one shift register the width of the
// configuration bus. On every clock the bit on SIn enters bus bit 0, every
// bit moves one position up and bus bit TotalLength-1 leaves on SOut. After
// TotalLength clocks the first bit shifted in therefore sits at the MSB.
package sim

import (
	"fmt"

	"github.com/OpenTraceLab/scangen/pkg/layout"
	"github.com/OpenTraceLab/scangen/pkg/scan"
)

// Simulator holds the shift register and both buses of one chain.
type Simulator struct {
	chain *layout.Chain

	shift  []byte // packed LSB-first, bit i is bus bit i
	config []byte // outputs of write cells
	status []byte // inputs of read cells
}

// New returns a simulator in the reset state.
func New(c *layout.Chain) *Simulator {
	n := (c.TotalLength + 7) / 8
	return &Simulator{
		chain:  c,
		shift:  make([]byte, n),
		config: make([]byte, n),
		status: make([]byte, n),
	}
}

// Len is the number of bits in the chain.
func (s *Simulator) Len() int { return s.chain.TotalLength }

// Reset clears the shift register and the configuration outputs.
func (s *Simulator) Reset() {
	clear(s.shift)
	clear(s.config)
}

// Shift clocks in one bit per element of in and returns the bits seen on
// SOut, one per clock.
func (s *Simulator) Shift(in []bool) []bool {
	n := s.chain.TotalLength
	out := make([]bool, len(in))
	for k, bit := range in {
		if n == 0 {
			out[k] = bit
			continue
		}
		out[k] = getBit(s.shift, n-1)
		for i := n - 1; i > 0; i-- {
			setBit(s.shift, i, getBit(s.shift, i-1))
		}
		setBit(s.shift, 0, bit)
	}
	if !s.chain.ConfigLatch {
		s.Update()
	}
	return out
}

// SetStatus drives the bus bits read cells observe. bus is indexed by bus
// bit and must be TotalLength long.
func (s *Simulator) SetStatus(bus []bool) error {
	if len(bus) != s.chain.TotalLength {
		return fmt.Errorf("sim: status bus has %d bits, chain has %d", len(bus), s.chain.TotalLength)
	}
	for i, b := range bus {
		setBit(s.status, i, b)
	}
	return nil
}

// Capture loads the status bus into the ranges of read cells. Write cells
// keep their shift contents.
func (s *Simulator) Capture() {
	s.forCells(scan.Read, func(i int) {
		setBit(s.shift, i, getBit(s.status, i))
	})
}

// Update copies the ranges of write cells from the shift register to the
// configuration bus. Without a config latch this happens after every shift.
func (s *Simulator) Update() {
	s.forCells(scan.Write, func(i int) {
		setBit(s.config, i, getBit(s.shift, i))
	})
}

// Register returns the shift register, indexed by bus bit.
func (s *Simulator) Register() []bool {
	return unpack(s.shift, s.chain.TotalLength)
}

// Config returns the configuration bus, indexed by bus bit. Bits owned by
// read cells are always zero.
func (s *Simulator) Config() []bool {
	return unpack(s.config, s.chain.TotalLength)
}

func (s *Simulator) forCells(dir scan.Direction, fn func(bit int)) {
	for _, c := range s.chain.Cells {
		if c.Direction != dir {
			continue
		}
		for i := c.MinPos; i <= c.MaxPos; i++ {
			fn(i)
		}
	}
}

func getBit(buf []byte, i int) bool {
	return buf[i/8]&(1<<(i%8)) != 0
}

func setBit(buf []byte, i int, v bool) {
	if v {
		buf[i/8] |= 1 << (i % 8)
	} else {
		buf[i/8] &^= 1 << (i % 8)
	}
}

func unpack(buf []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = getBit(buf, i)
	}
	return out
}
