package admin

import "time"

// SetNowFunc swaps the clock used by the service until restore is called.
func SetNowFunc(f func() time.Time) (restore func()) {
	orig := nowFunc
	nowFunc = f
	return func() { nowFunc = orig }
}

// SetOTPFunc swaps the OTP generator until restore is called.
func SetOTPFunc(f func() (string, error)) (restore func()) {
	orig := otpFunc
	otpFunc = f
	return func() { otpFunc = orig }
}

var (
	HashResetToken = hashResetToken
	MakeOTP        = makeOTP
	FormatDelta    = formatDelta
)
