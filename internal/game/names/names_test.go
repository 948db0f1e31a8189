package names_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatstate/internal/game/names"
)

func TestKey_FoldsCase(t *testing.T) {
	assert.Equal(t, "burn", names.Key("Burn"))
	assert.Equal(t, "burn", names.Key("BURN"))
	assert.Equal(t, "burn", names.Key("burn"))
}

func TestPropertyKey_CaseVariantsCollide(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z_]{1,16}`).Draw(t, "name")
		if names.Key(strings.ToUpper(name)) != names.Key(name) {
			t.Fatalf("upper and original of %q must share a key", name)
		}
	})
}
