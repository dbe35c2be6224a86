package spvbuild

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileErrorOutput(t *testing.T) {
	inner := errors.New("exit with code: 1")
	err := &CompileError{
		Source:   "default.frag",
		Artifact: "data/shaders/default.frag.spv",
		Output:   []byte("default.frag:2: error: '#error' : broken\n"),
		Err:      inner,
	}
	assert.Equal(t,
		"compile \"default.frag\": exit with code: 1\n"+
			"default.frag:2: error: '#error' : broken",
		err.Error(),
	)
	assert.True(t, errors.Is(err, inner))

	err.Output = nil
	assert.Equal(t, "compile \"default.frag\": exit with code: 1", err.Error())
}

func TestMissingErrorsAreNotExist(t *testing.T) {
	assert.True(t, errors.Is(&SourceMissingError{Source: "a.vert"}, os.ErrNotExist))
	assert.True(t, errors.Is(&ArtifactMissingError{Artifact: "a.vert.spv"}, os.ErrNotExist))
}
