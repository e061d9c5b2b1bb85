package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobNames(t *testing.T) {
	assert.Nil(t, jobNames("all"))
	assert.Equal(t, []string{"reconcile"}, jobNames("reconcile"))
	assert.Equal(t, []string{"reconcile", "rates"}, jobNames(" reconcile, ,rates "))
}

func TestLockScope(t *testing.T) {
	assert.Equal(t, "local", lockScope(""))
	assert.Equal(t, "prod", lockScope("prod"))
}
