package quickhold_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iov-one/quickhold"
)

func TestVersion(t *testing.T) {
	defer func() { quickhold.GitCommit = "" }()

	quickhold.GitCommit = ""
	assert.Equal(t, "v0.1.0-dev", quickhold.Version())

	quickhold.GitCommit = "12345678"
	assert.Equal(t, "v0.1.0-dev 12345678", quickhold.Version())
}
