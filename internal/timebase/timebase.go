// Package timebase converts between track rates and the global timestamp base.
//
// Every timestamp in a playback session is an integer count of GlobalBase
// ticks. Tracks carry their own nominal rate as a (duration, scale) pair and
// all conversion between the two goes through Rescale, which works on exact
// integers so no precision is lost.
package timebase

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

// Timestamp is a point on a session timeline counted in GlobalBase ticks.
type Timestamp int64

// Rational is a (duration, scale) pair: one unit lasts Duration/Scale seconds.
// A 29.97 fps video track is {1001, 30000}; 48 kHz audio is {1, 48000}.
type Rational struct {
	Duration int64
	Scale    int64
}

// GlobalBase is the tick base of every Timestamp (microseconds).
var GlobalBase = Rational{Duration: 1, Scale: 1_000_000}

// nanos is the unit of time.Duration.
var nanos = Rational{Duration: 1, Scale: int64(time.Second)}

// Valid reports whether both parts of r are positive.
func (r Rational) Valid() bool {
	return r.Duration > 0 && r.Scale > 0
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Duration, r.Scale)
}

// Rescale converts value counted in units of from into units of to:
//
//	round(value * from.Duration * to.Scale / (from.Scale * to.Duration))
//
// The product is computed at arbitrary width and rounded half away from zero.
// Results outside the int64 range saturate. A zero from.Scale or to.Duration
// is a programming error and panics.
func Rescale(value int64, from, to Rational) int64 {
	if from.Scale == 0 || to.Duration == 0 {
		panic(fmt.Sprintf("timebase: rescale %d from %s to %s: zero divisor", value, from, to))
	}

	num := big.NewInt(value)
	num.Mul(num, big.NewInt(from.Duration))
	num.Mul(num, big.NewInt(to.Scale))
	den := new(big.Int).Mul(big.NewInt(from.Scale), big.NewInt(to.Duration))

	return saturate(divRound(num, den))
}

// TicksPerFrame is the length of one nominal unit of rate in global ticks.
func TicksPerFrame(rate Rational) Timestamp {
	return Timestamp(Rescale(1, rate, GlobalBase))
}

// FromDuration converts a wall-clock duration into global ticks.
func FromDuration(d time.Duration) Timestamp {
	return Timestamp(Rescale(int64(d), nanos, GlobalBase))
}

// Duration converts t into a wall-clock duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(Rescale(int64(t), GlobalBase, nanos))
}

// WholeUnits returns how many complete units of rate fit in d. Negative
// durations count toward zero.
func WholeUnits(d time.Duration, rate Rational) int64 {
	if rate.Duration == 0 {
		panic(fmt.Sprintf("timebase: whole units of %s: zero divisor", rate))
	}
	num := big.NewInt(int64(d))
	num.Mul(num, big.NewInt(rate.Scale))
	den := new(big.Int).Mul(big.NewInt(rate.Duration), big.NewInt(int64(time.Second)))
	return saturate(num.Quo(num, den))
}

// divRound divides num by den rounding half away from zero.
func divRound(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() == 0 {
		return q
	}
	twice := new(big.Int).Abs(r)
	twice.Lsh(twice, 1)
	if twice.Cmp(new(big.Int).Abs(den)) >= 0 {
		if num.Sign()*den.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return q
}

func saturate(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}
