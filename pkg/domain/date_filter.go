package domain

import "time"

// DateFilter holds the raw date expressions given on the command line.
// LastRun is mutually exclusive with Since and Until.
type DateFilter struct {
	Since   string `yaml:"since"`
	Until   string `yaml:"until"`
	LastRun bool   `yaml:"last_run"`
}

// Bounds is a DateFilter normalized to absolute instants. Nil means unbounded.
type Bounds struct {
	Since *time.Time
	Until *time.Time
}

func (b Bounds) IsZero() bool {
	return b.Since == nil && b.Until == nil
}

// Contains reports whether t lies in [Since, Until]. A zero t is always
// contained so that records without a timestamp are never dropped.
func (b Bounds) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if b.Since != nil && t.Before(*b.Since) {
		return false
	}
	if b.Until != nil && t.After(*b.Until) {
		return false
	}
	return true
}
