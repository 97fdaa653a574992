package commit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadTrackerMarkAndHasRead(t *testing.T) {
	tr := NewReadTracker()
	assert.False(t, tr.HasRead("a.json"))
	tr.MarkRead("a.json")
	assert.True(t, tr.HasRead("a.json"))
	assert.False(t, tr.HasRead("b.json"))
}

func TestReadTrackerConcurrentMarkIsSafe(t *testing.T) {
	tr := NewReadTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.MarkRead(pathFor(n))
		}(i)
	}
	wg.Wait()
	for i := 0; i < 50; i++ {
		assert.True(t, tr.HasRead(pathFor(i)))
	}
}

func pathFor(n int) string {
	return "file-" + string(rune('a'+n%26))
}
