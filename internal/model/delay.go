package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDelayRange = errors.New("invalid delay range")

// DelayRange bounds the randomized pause between two sends.
type DelayRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

func (d DelayRange) Validate() error {
	if d.Min < 0 || d.Max < 0 {
		return fmt.Errorf("%w: negative bound [%s, %s]", ErrInvalidDelayRange, d.Min, d.Max)
	}
	if d.Min > d.Max {
		return fmt.Errorf("%w: min %s > max %s", ErrInvalidDelayRange, d.Min, d.Max)
	}
	return nil
}

func (d DelayRange) Contains(v time.Duration) bool {
	return v >= d.Min && v <= d.Max
}
