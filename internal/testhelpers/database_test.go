package testhelpers

import (
	"testing"

	"github.com/pantryscout/backend/internal/model"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSQLite(t *testing.T) {
	t.Run("should migrate every table", func(t *testing.T) {
		db := SetupSQLite(t)
		for _, table := range []interface{}{&model.Product{}, &model.Recipe{}, &model.Comment{}} {
			assert.True(t, db.Migrator().HasTable(table))
		}
	})

	t.Run("should isolate databases between calls", func(t *testing.T) {
		first := SetupSQLite(t)
		second := SetupSQLite(t)

		require.NoError(t, first.Create(&model.Recipe{Title: "Only here"}).Error)

		var count int64
		require.NoError(t, second.Model(&model.Recipe{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("should store a zero embedding when none is set", func(t *testing.T) {
		db := SetupSQLite(t)
		recipe := &model.Recipe{Title: "Plain"}
		require.NoError(t, db.Create(recipe).Error)

		var got model.Recipe
		require.NoError(t, db.First(&got, "id = ?", recipe.ID).Error)
		assert.Equal(t, pgvector.NewVector(make([]float32, model.EmbeddingDimensions)).Slice(), got.Embedding.Slice())
	})

	t.Run("should enforce unique titles regardless of case", func(t *testing.T) {
		db := SetupSQLite(t)
		require.NoError(t, db.Create(&model.Recipe{Title: "Pasta"}).Error)
		assert.Error(t, db.Create(&model.Recipe{Title: "pasta"}).Error)
	})
}
