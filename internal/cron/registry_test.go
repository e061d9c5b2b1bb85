package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndLooksUpByName(t *testing.T) {
	reconcile := &stubJob{name: "reconcile-deposits"}
	audit := &stubJob{name: "audit"}
	registry, err := NewRegistry(reconcile, nil, audit)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, reconcile, jobs[0])
	assert.Same(t, audit, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "caller mutated registry state")

	found, ok := registry.Lookup("audit")
	require.True(t, ok)
	assert.Same(t, audit, found)
	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateAndEmptyNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	require.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(&stubJob{}))
}
