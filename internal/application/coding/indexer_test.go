package coding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbs-coding-api/internal/domain/repository"
	"mbs-coding-api/pkg/errors"
)

type fakeCategoryRepo struct {
	rows map[string][]repository.CategoryRow
}

func (f *fakeCategoryRepo) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	for k := range f.rows {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeCategoryRepo) CategoryRows(ctx context.Context, categoryID string) ([]repository.CategoryRow, error) {
	rows, ok := f.rows[categoryID]
	if !ok {
		return nil, errors.New(errors.CodeCategoryNotFound, "category table missing")
	}
	return rows, nil
}

type recordingIndex struct {
	fakeIndex
	rebuilt map[string][]IndexItem
}

func (r *recordingIndex) RebuildCategory(ctx context.Context, categoryID string, items []IndexItem) error {
	if r.rebuilt == nil {
		r.rebuilt = make(map[string][]IndexItem)
	}
	r.rebuilt[categoryID] = items
	return nil
}

func TestBuildCategory(t *testing.T) {
	rows := make([]repository.CategoryRow, 70)
	for i := range rows {
		rows[i] = repository.CategoryRow{
			ItemNumber:     fmt.Sprintf("%d", i),
			ServiceSummary: fmt.Sprintf("service %d", i),
			StartAge:       0, EndAge: 200,
			StartTime: 0, EndTime: 10000,
		}
	}
	repo := &fakeCategoryRepo{rows: map[string][]repository.CategoryRow{"1": rows}}
	idx := &recordingIndex{}

	ix := NewIndexer(repo, &fakeEmbedder{}, idx, 32)
	res, err := ix.BuildCategory(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, "1", res.CategoryID)
	assert.Equal(t, 70, res.Items)

	items := idx.rebuilt["1"]
	require.Len(t, items, 70)
	for _, it := range items {
		assert.NotEmpty(t, it.Vector)
		assert.Equal(t, "1", it.Item.CategoryID)
	}
	// 数值边界随行数据带入候选
	assert.Equal(t, float64(200), items[0].Item.AgeRange.End)
}

func TestBuildCategoryEmpty(t *testing.T) {
	repo := &fakeCategoryRepo{rows: map[string][]repository.CategoryRow{"1": {}}}
	ix := NewIndexer(repo, &fakeEmbedder{}, &recordingIndex{}, 32)

	_, err := ix.BuildCategory(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeIndexBuildFailed, errors.AsAppError(err).Code)
}

func TestBuildCategoryUnknown(t *testing.T) {
	repo := &fakeCategoryRepo{rows: map[string][]repository.CategoryRow{}}
	ix := NewIndexer(repo, &fakeEmbedder{}, &recordingIndex{}, 32)

	_, err := ix.BuildCategory(context.Background(), "9")
	require.Error(t, err)
	assert.Equal(t, errors.CodeCategoryNotFound, errors.AsAppError(err).Code)
}
