// Package seed loads sample members and an opening session from a YAML
// fixture.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/OkarFabianTheWise/nifes/internal/members"
	"github.com/OkarFabianTheWise/nifes/internal/models"
	"github.com/OkarFabianTheWise/nifes/internal/sessions"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var defaultFixture []byte

type Fixture struct {
	Session string              `yaml:"session"`
	Members []members.Candidate `yaml:"members"`
}

// Summary reports what Apply changed.
type Summary struct {
	Created  int
	Existing int
	Session  *models.Session
}

// Default returns the built-in fixture.
func Default() (Fixture, error) {
	return Parse(defaultFixture)
}

func Load(r io.Reader) (Fixture, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	for i, m := range fx.Members {
		if m.Normalize().Name == "" {
			return Fixture{}, fmt.Errorf("fixture member %d: name is required", i)
		}
	}
	return fx, nil
}

// Apply registers every fixture member and, when the fixture names one,
// creates and activates the opening session. Members whose email or phone
// already exist are left untouched, so Apply can be re-run.
func Apply(ctx context.Context, dir *members.Directory, reg *sessions.Registry, fx Fixture) (Summary, error) {
	var created, existing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range fx.Members {
		g.Go(func() error {
			_, isNew, err := dir.FindOrCreate(gctx, c)
			if err != nil {
				return fmt.Errorf("seed member %q: %w", c.Name, err)
			}
			if isNew {
				created.Add(1)
			} else {
				existing.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{Created: int(created.Load()), Existing: int(existing.Load())}
	if fx.Session != "" {
		s, err := reg.Create(ctx, fx.Session)
		if err != nil {
			return sum, fmt.Errorf("seed session: %w", err)
		}
		sum.Session = &s.Session
	}
	return sum, nil
}
