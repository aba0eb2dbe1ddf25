package version

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestVersionDefaults(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.Equal(t, Version, String())
}

func TestVersionCanBeOverridden(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3"
	assert.Equal(t, "1.2.3", String())

	Version = "  "
	assert.Equal(t, "dev", String())
}

func TestPretty(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, origNoColor })
	color.NoColor = true

	Version = "2.0.1-rc1"
	assert.Equal(t, "2.0.1-rc1", Pretty())

	Version = "nightly"
	assert.Equal(t, "nightly", Pretty())
}
