// Package settings holds the live monitored-scope configuration.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

var (
	// ErrNoWarehouses is returned when alerting is active with an empty scope.
	ErrNoWarehouses = errors.New("at least one warehouse must be added when active")
	// ErrNoRecipient is returned when no monitored warehouse has an email address.
	ErrNoRecipient = errors.New("at least one monitored warehouse needs a recipient email when active")
	// ErrUnknownWarehouse is returned when a listed warehouse does not exist.
	ErrUnknownWarehouse = errors.New("unknown warehouse")
)

// IsInvalid reports whether err is a validation failure rather than a
// lookup failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrNoWarehouses) ||
		errors.Is(err, ErrNoRecipient) ||
		errors.Is(err, ErrUnknownWarehouse)
}

// Settings is the monitored-scope configuration. When inactive, every leaf
// alerts itself.
type Settings struct {
	Active     bool     `json:"active" yaml:"active"`
	Warehouses []string `json:"warehouses" yaml:"warehouses"`
}

// Scope returns the monitored scope the dispatcher should use.
func (s Settings) Scope() model.MonitoredScope {
	if !s.Active || len(s.Warehouses) == 0 {
		return nil
	}
	return append(model.MonitoredScope(nil), s.Warehouses...)
}

// WarehouseLookup resolves warehouse names.
type WarehouseLookup interface {
	GetWarehouse(ctx context.Context, name string) (*model.Warehouse, error)
}

// Validate checks that every listed warehouse exists and, when active, that
// the scope is non-empty and reaches at least one recipient.
func (s Settings) Validate(ctx context.Context, lookup WarehouseLookup) error {
	if s.Active && len(s.Warehouses) == 0 {
		return ErrNoWarehouses
	}

	hasRecipient := false
	for _, name := range s.Warehouses {
		w, err := lookup.GetWarehouse(ctx, name)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w %q", ErrUnknownWarehouse, name)
		}
		if err != nil {
			return fmt.Errorf("look up warehouse %q: %w", name, err)
		}
		if w.EmailID != "" {
			hasRecipient = true
		}
	}

	if s.Active && !hasRecipient {
		return ErrNoRecipient
	}
	return nil
}

// normalize drops duplicate warehouses, keeping the first occurrence.
func (s Settings) normalize() Settings {
	seen := make(map[string]struct{}, len(s.Warehouses))
	out := Settings{Active: s.Active}
	for _, name := range s.Warehouses {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out.Warehouses = append(out.Warehouses, name)
	}
	return out
}

// Holder publishes settings to concurrent readers. Each event invocation
// reads the scope once at its start.
type Holder struct {
	current atomic.Pointer[Settings]
}

// NewHolder creates a holder with initial settings. Initial settings are not
// validated so a fresh database can still start.
func NewHolder(initial Settings) *Holder {
	h := &Holder{}
	s := initial.normalize()
	h.current.Store(&s)
	return h
}

// Get returns a copy of the current settings.
func (h *Holder) Get() Settings {
	s := h.current.Load()
	return Settings{Active: s.Active, Warehouses: append([]string(nil), s.Warehouses...)}
}

// Scope returns the current monitored scope.
func (h *Holder) Scope() model.MonitoredScope {
	return h.current.Load().Scope()
}

// Update validates s and makes it current.
func (h *Holder) Update(ctx context.Context, lookup WarehouseLookup, s Settings) error {
	s = s.normalize()
	if err := s.Validate(ctx, lookup); err != nil {
		return err
	}
	h.current.Store(&s)
	return nil
}
