package runner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specvital/phpunit-runner/pkg/registry"
)

func TestWatcher(t *testing.T) {
	t.Run("should run everything for an all subscription", func(t *testing.T) {
		// Given
		reg, file := newRegistry(t)
		var submitted [][]string
		w := NewWatcher(func(ids []string) { submitted = append(submitted, ids) })
		w.WatchAll()

		// When
		ids, ok := w.Notify(file, reg)

		// Then
		assert.True(t, ok)
		assert.Nil(t, ids)
		assert.Len(t, submitted, 1)
	})

	t.Run("should submit only watched items of the saved file", func(t *testing.T) {
		// Given
		reg, file := newRegistry(t)
		add := findItem(t, reg, registry.KindMethod, "testAdd")
		dir := findItem(t, reg, registry.KindDirectory, filepath.Base(filepath.Dir(file)))
		var submitted [][]string
		w := NewWatcher(func(ids []string) { submitted = append(submitted, ids) })
		w.Watch([]string{add.ID, dir.ID, "missing"})

		// When
		ids, ok := w.Notify(file, reg)

		// Then
		assert.True(t, ok)
		assert.Equal(t, []string{add.ID}, ids)
		assert.Equal(t, [][]string{{add.ID}}, submitted)
	})

	t.Run("should ignore unrelated files", func(t *testing.T) {
		reg, file := newRegistry(t)
		add := findItem(t, reg, registry.KindMethod, "testAdd")
		submitted := 0
		w := NewWatcher(func(ids []string) { submitted++ })
		w.Watch([]string{add.ID})

		_, ok := w.Notify(filepath.Join(filepath.Dir(file), "OtherTest.php"), reg)

		assert.False(t, ok)
		assert.Zero(t, submitted)
	})

	t.Run("should stop after unsubscribing", func(t *testing.T) {
		reg, file := newRegistry(t)
		submitted := 0
		w := NewWatcher(func(ids []string) { submitted++ })
		cancel := w.WatchAll()
		cancel()

		_, ok := w.Notify(file, reg)

		assert.False(t, ok)
		assert.False(t, w.Active())
		assert.Zero(t, submitted)
	})
}
