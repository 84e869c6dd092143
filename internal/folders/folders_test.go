package folders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver(t *testing.T) {
	src := map[string][]string{
		"checkpoints": {"/models/checkpoints", "/extra/checkpoints"},
		"empty":       {},
	}
	r := NewResolver(src)

	assert.Equal(t, []string{"/models/checkpoints", "/extra/checkpoints"}, r.ResolveFolderPaths("checkpoints"))
	assert.Empty(t, r.ResolveFolderPaths("bogus"))
	assert.Empty(t, r.ResolveFolderPaths("empty"))

	// 源映射的修改不影响解析器
	src["checkpoints"][0] = "/changed"
	assert.Equal(t, "/models/checkpoints", r.ResolveFolderPaths("checkpoints")[0])

	// 返回值的修改同样不影响
	got := r.ResolveFolderPaths("checkpoints")
	got[0] = "/mutated"
	assert.Equal(t, "/models/checkpoints", r.ResolveFolderPaths("checkpoints")[0])
}

func TestResolver_Categories(t *testing.T) {
	r := NewResolver(map[string][]string{"vae": {"/v"}, "loras": {"/l1", "/l2"}, "empty": nil})

	assert.Equal(t, []string{"loras", "vae"}, r.Categories())
}
