// Package gps abstracts device location lookup for capture tagging.
//
// Coordinates are attached to an item once, at enqueue time, so a photo keeps
// the location it was taken at even if the device moves before the upload
// happens. Providers must return quickly; a slow or absent GPS fix degrades
// to an untagged capture rather than blocking the camera flow.
package gps

import (
	"context"
	"errors"
	"sync"
)

// Fix is a point location reported by a provider.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// ErrNoFix is returned when the provider has no current location.
var ErrNoFix = errors.New("no gps fix available")

// Provider supplies the device's current location.
type Provider interface {
	Current(ctx context.Context) (Fix, error)
}

// Nop is a Provider that never has a fix. Devices without GPS hardware use it.
type Nop struct{}

func (Nop) Current(ctx context.Context) (Fix, error) {
	return Fix{}, ErrNoFix
}

// Static reports a manually configured location, typically the site office
// coordinates entered during device provisioning.
type Static struct {
	mu  sync.Mutex
	fix *Fix
}

// NewStatic builds a Static provider with no initial fix.
func NewStatic() *Static {
	return &Static{}
}

// Set records the location future captures are tagged with.
func (s *Static) Set(fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fix = &fix
}

// Clear drops the stored location.
func (s *Static) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fix = nil
}

func (s *Static) Current(ctx context.Context) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix == nil {
		return Fix{}, ErrNoFix
	}
	return *s.fix, nil
}
