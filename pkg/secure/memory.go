package secure

import (
	"math/big"
	"runtime"
)

func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroInt overwrites the limbs backing x and resets it to 0.
func ZeroInt(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	runtime.KeepAlive(words)
	x.SetInt64(0)
}

// ZeroRat wipes both numerator and denominator of r and leaves r equal to 0.
func ZeroRat(r *big.Rat) {
	if r == nil {
		return
	}
	ZeroInt(r.Num())
	ZeroInt(r.Denom())
	r.SetInt64(0)
}

func ZeroMatrix(m [][]*big.Rat) {
	for _, row := range m {
		for _, v := range row {
			ZeroRat(v)
		}
	}
}

func ClearBytes(b *[]byte) {
	if b == nil || *b == nil {
		return
	}
	Zero(*b)
	*b = nil
}
