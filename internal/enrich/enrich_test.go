package enrich_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anticine/anticine/internal/cinema"
	"github.com/anticine/anticine/internal/enrich"
	"github.com/anticine/anticine/internal/enrich/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func movie(id, title string) *cinema.Movie {
	return &cinema.Movie{FilmID: id, Title: title, Synopsis: title + " synopsis", PosterURL: "http://cdn/" + id + ".jpg"}
}

// boards builds two venues that both show HO1, one of them on two days.
func boards() map[string][]cinema.BillboardDay {
	return map[string][]cinema.BillboardDay{
		"2702": {
			{Date: "2023-02-10", Movies: []*cinema.Movie{movie("HO1", "AVATAR"), movie("HO2", "FROZEN")}},
			{Date: "2023-02-11", Movies: []*cinema.Movie{movie("HO1", "AVATAR")}},
		},
		"2703": {
			{Date: "2023-02-10", Movies: []*cinema.Movie{movie("HO1", "AVATAR"), movie("HO3", "COCO")}},
		},
	}
}

func allMovies(b map[string][]cinema.BillboardDay) []*cinema.Movie {
	var out []*cinema.Movie
	for _, days := range b {
		for _, d := range days {
			out = append(out, d.Movies...)
		}
	}
	return out
}

func TestOrchestrator_Enrich_SharesPerFilm(t *testing.T) {
	ctrl := gomock.NewController(t)
	tagger := mocks.NewMockTagger(ctrl)
	thumbs := mocks.NewMockThumbnailer(ctrl)

	tagger.EXPECT().Tag(gomock.Any(), "AVATAR", "AVATAR synopsis").Return("🌊🌿👽🔵🏹", nil).Times(1)
	tagger.EXPECT().Tag(gomock.Any(), "FROZEN", gomock.Any()).Return("⛄🏰👸🏔️🥶", nil).Times(1)
	tagger.EXPECT().Tag(gomock.Any(), "COCO", gomock.Any()).Return("💀🎸🌼🕯️👦", nil).Times(1)
	thumbs.EXPECT().Thumbnail(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filmID, url string) (*cinema.Thumbnail, error) {
			assert.Equal(t, "http://cdn/"+filmID+".jpg", url)
			return &cinema.Thumbnail{Art: filmID}, nil
		}).Times(3)

	o := enrich.NewOrchestrator(tagger, thumbs, enrich.WithLogger(testLogger()))
	b := boards()
	require.NoError(t, o.Enrich(context.Background(), b))

	var avatar *cinema.Enrichment
	for _, m := range allMovies(b) {
		require.NotNil(t, m.Enrichment, m.FilmID)
		assert.Equal(t, m.FilmID, m.Enrichment.Thumbnail.Art)
		if m.FilmID == "HO1" {
			if avatar == nil {
				avatar = m.Enrichment
			}
			assert.Same(t, avatar, m.Enrichment)
		}
	}
	assert.Equal(t, "🌊🌿👽🔵🏹", avatar.Tags)
	assert.Equal(t, 3, o.Memo().Len())
}

func TestOrchestrator_Enrich_Degrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	tagger := mocks.NewMockTagger(ctrl)
	thumbs := mocks.NewMockThumbnailer(ctrl)

	tagger.EXPECT().Tag(gomock.Any(), "AVATAR", gomock.Any()).Return("", errors.New("rate limited"))
	tagger.EXPECT().Tag(gomock.Any(), gomock.Any(), gomock.Any()).Return("🎬", nil).Times(2)
	thumbs.EXPECT().Thumbnail(gomock.Any(), "HO2", gomock.Any()).Return(nil, errors.New("404"))
	thumbs.EXPECT().Thumbnail(gomock.Any(), gomock.Any(), gomock.Any()).Return(&cinema.Thumbnail{}, nil).Times(2)

	o := enrich.NewOrchestrator(tagger, thumbs, enrich.WithLogger(testLogger()))
	b := boards()
	require.NoError(t, o.Enrich(context.Background(), b))

	for _, m := range allMovies(b) {
		require.NotNil(t, m.Enrichment)
		switch m.FilmID {
		case "HO1":
			assert.Equal(t, enrich.DefaultUnknownTag, m.Enrichment.Tags)
			assert.NotNil(t, m.Enrichment.Thumbnail)
		case "HO2":
			assert.Equal(t, "🎬", m.Enrichment.Tags)
			assert.Nil(t, m.Enrichment.Thumbnail)
		}
	}
}

func TestOrchestrator_Enrich_MemoizedAcrossEpisodes(t *testing.T) {
	ctrl := gomock.NewController(t)
	tagger := mocks.NewMockTagger(ctrl)
	tagger.EXPECT().Tag(gomock.Any(), gomock.Any(), gomock.Any()).Return("🎬", nil).Times(3)

	o := enrich.NewOrchestrator(tagger, nil, enrich.WithLogger(testLogger()), enrich.WithUnknownTag("?"))

	first := boards()
	require.NoError(t, o.Enrich(context.Background(), first))
	second := boards()
	require.NoError(t, o.Enrich(context.Background(), second))

	assert.Same(t, first["2702"][0].Movies[0].Enrichment, second["2703"][0].Movies[0].Enrichment)
	assert.Nil(t, second["2702"][0].Movies[0].Enrichment.Thumbnail)

	o.Memo().Clear()
	assert.Equal(t, 0, o.Memo().Len())
}

func TestOrchestrator_Enrich_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	tagger := mocks.NewMockTagger(ctrl)
	tagger.EXPECT().Tag(gomock.Any(), gomock.Any(), gomock.Any()).Return("", context.Canceled).AnyTimes()

	o := enrich.NewOrchestrator(tagger, nil, enrich.WithLogger(testLogger()), enrich.WithConcurrency(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.Enrich(ctx, boards())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, o.Memo().Len())
}

func TestOrchestrator_Enrich_Empty(t *testing.T) {
	o := enrich.NewOrchestrator(nil, nil, enrich.WithLogger(testLogger()))
	require.NoError(t, o.Enrich(context.Background(), nil))

	b := map[string][]cinema.BillboardDay{"2702": {{Date: "2023-02-10", Movies: []*cinema.Movie{movie("HO1", "X")}}}}
	require.NoError(t, o.Enrich(context.Background(), b))
	assert.Equal(t, enrich.DefaultUnknownTag, b["2702"][0].Movies[0].Enrichment.Tags)
}

func TestMemo_Do_SingleFlight(t *testing.T) {
	m := enrich.NewMemo()

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]*cinema.Enrichment, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := m.Do("HO1", func() (*cinema.Enrichment, error) {
				calls.Add(1)
				<-release
				return &cinema.Enrichment{Tags: "🎬"}, nil
			})
			assert.NoError(t, err)
			results[i] = e
		}()
	}
	close(release)
	wg.Wait()

	// late callers may miss the flight but then hit the memo
	assert.Equal(t, int32(1), calls.Load())
	for _, e := range results {
		assert.Same(t, results[0], e)
	}
}

func TestMemo_Do_ErrorNotStored(t *testing.T) {
	m := enrich.NewMemo()
	boom := errors.New("boom")

	_, err := m.Do("HO1", func() (*cinema.Enrichment, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := m.Get("HO1")
	assert.False(t, ok)

	e, err := m.Do("HO1", func() (*cinema.Enrichment, error) { return &cinema.Enrichment{Tags: "x"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "x", e.Tags)
}
