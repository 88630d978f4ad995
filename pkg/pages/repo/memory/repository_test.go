package memory_test

import (
	"testing"

	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/repo/memory"
	"github.com/ozeweb/oze-website/pkg/pages/repo/repotest"
)

func TestMemoryRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) pages.Repository {
		return memory.New()
	})
}
