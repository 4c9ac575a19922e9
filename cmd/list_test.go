package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewListCmd(t *testing.T) {
	cmd := newListCmd()
	assert.Equal(t, "list [dir]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, listLongDescription, cmd.Long)
}
