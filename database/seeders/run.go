// Package seeders fills a fresh database with demo catalog data and the
// first admin account. Seeders register themselves from init and must be
// safe to run more than once.
//
//	shop seed            # every seeder
//	shop seed catalog    # only the named ones
package seeders

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

type Seeder func(db *gorm.DB) error

type named struct {
	name string
	fn   Seeder
}

var (
	mu       sync.Mutex
	registry []named
)

// Register appends a seeder. Names must be unique.
func Register(name string, fn Seeder) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range registry {
		if s.name == name {
			panic("seeders: duplicate seeder " + name)
		}
	}
	registry = append(registry, named{name: name, fn: fn})
}

// Names lists the registered seeders in run order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(registry))
	for i, s := range registry {
		out[i] = s.name
	}
	return out
}

// RunAll runs every seeder in registration order.
func RunAll(db *gorm.DB) error { return Run(db) }

// Run runs the named seeders, or all of them when names is empty. It stops
// at the first failure.
func Run(db *gorm.DB, names ...string) error {
	mu.Lock()
	selected := make([]named, 0, len(registry))
	if len(names) == 0 {
		selected = append(selected, registry...)
	} else {
		for _, n := range names {
			found := false
			for _, s := range registry {
				if s.name == n {
					selected = append(selected, s)
					found = true
					break
				}
			}
			if !found {
				mu.Unlock()
				return fmt.Errorf("seeders: unknown seeder %q", n)
			}
		}
	}
	mu.Unlock()

	for _, s := range selected {
		start := time.Now()
		if err := s.fn(db); err != nil {
			return fmt.Errorf("seeder %q: %w", s.name, err)
		}
		logger.Info("seeded", "seeder", s.name, "took", time.Since(start))
	}
	return nil
}
