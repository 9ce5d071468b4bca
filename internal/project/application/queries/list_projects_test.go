package queries

import (
	"context"
	"testing"
	"time"

	"github.com/fieldscale/takt/internal/project/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListProjectsHandler_Success(t *testing.T) {
	repo := new(mockProjectRepo)

	newer := domain.Summary{
		ID:          uuid.New(),
		Name:        "Harbor Point",
		StartDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ZoneCount:   2,
		TaskCount:   12,
		Disciplines: []string{"mep", "structure"},
		CreatedAt:   time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC),
	}
	older := domain.Summary{
		ID:        uuid.New(),
		Name:      "Depot Refit",
		StartDate: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		ZoneCount: 1,
		TaskCount: 4,
		CreatedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}

	repo.On("List", mock.Anything).Return([]domain.Summary{newer, older}, nil)

	handler := NewListProjectsHandler(repo)

	dtos, err := handler.Handle(context.Background(), ListProjectsQuery{})

	require.NoError(t, err)
	require.Len(t, dtos, 2)
	assert.Equal(t, newer.ID, dtos[0].ID)
	assert.Equal(t, "Harbor Point", dtos[0].Name)
	assert.Equal(t, []string{"mep", "structure"}, dtos[0].Disciplines)
	assert.Equal(t, older.ID, dtos[1].ID)
	assert.Equal(t, 4, dtos[1].TaskCount)

	repo.AssertExpectations(t)
}

func TestListProjectsHandler_Empty(t *testing.T) {
	repo := new(mockProjectRepo)

	repo.On("List", mock.Anything).Return([]domain.Summary{}, nil)

	handler := NewListProjectsHandler(repo)

	dtos, err := handler.Handle(context.Background(), ListProjectsQuery{})

	require.NoError(t, err)
	assert.Empty(t, dtos)
}
