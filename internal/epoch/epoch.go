// Package epoch converts between wall-clock time, the Ripple/Xahau ledger
// epoch, and the drops sub-unit used on the wire.
package epoch

import (
	"time"

	"github.com/shopspring/decimal"
)

// RippleEpochOffset is the number of seconds between the Unix epoch
// (1970-01-01T00:00:00Z) and the Ripple epoch (2000-01-01T00:00:00Z).
const RippleEpochOffset int64 = 946684800

// DropsPerNativeUnit is the number of drops in one native currency unit.
const DropsPerNativeUnit int64 = 1_000_000

// ToRippleTime converts a wall-clock time to seconds since the Ripple epoch.
func ToRippleTime(t time.Time) int64 {
	return t.Unix() - RippleEpochOffset
}

// FromRippleTime converts seconds since the Ripple epoch to wall-clock time.
func FromRippleTime(rippleTime uint32) time.Time {
	return time.Unix(int64(rippleTime)+RippleEpochOffset, 0).UTC()
}

// NowRippleTime returns the current wall-clock time expressed in Ripple time.
func NowRippleTime(now time.Time) uint32 {
	return uint32(ToRippleTime(now))
}

// ToDrops converts a decimal amount expressed in native units into an integer
// number of drops. Amounts are expected to carry at most 6 fractional digits;
// ToDrops truncates any further precision rather than rounding, since a
// silently-rounded-up amount would overdraw the signer.
func ToDrops(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(DropsPerNativeUnit, 0)).Truncate(0).IntPart()
}

// FromDrops converts an integer number of drops into a decimal amount
// expressed in native units, retaining up to 6 fractional digits.
func FromDrops(drops int64) decimal.Decimal {
	return decimal.New(drops, 0).DivRound(decimal.New(DropsPerNativeUnit, 0), 6)
}
