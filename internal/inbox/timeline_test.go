package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

type resolverFunc func(kind lead.ContentKind, url string) (string, error)

func (f resolverFunc) Resolve(_ context.Context, kind lead.ContentKind, url string) (string, error) {
	return f(kind, url)
}

func TestBuildTimelineMediaPolicy(t *testing.T) {
	msg := func(id string, kind lead.ContentKind, url string) dto.Message {
		m := textMessage(id, "a", t0)
		m.ContentKind = kind
		m.MediaURL = url
		m.Content = ""
		return m
	}
	messages := []dto.Message{
		textMessage("t", "a", t0),
		msg("img", lead.ContentImage, "https://cdn/img.jpg"),
		msg("aud", lead.ContentAudio, "https://cdn/broken.ogg"),
		msg("doc", lead.ContentDocument, ""),
		msg("stk", lead.ContentSticker, "https://cdn/s.webp"),
	}
	resolver := resolverFunc(func(kind lead.ContentKind, url string) (string, error) {
		if url == "https://cdn/broken.ogg" {
			return "", errors.New("404")
		}
		return url + "?signed", nil
	})

	entries := BuildTimeline(context.Background(), messages, resolver)
	require.Len(t, entries, 5)
	assert.Equal(t, EntryText, entries[0].Kind)
	assert.Equal(t, "msg t", entries[0].Text)
	assert.Equal(t, EntryMedia, entries[1].Kind)
	assert.Equal(t, "https://cdn/img.jpg?signed", entries[1].MediaURL)
	assert.Equal(t, EntryPlaceholder, entries[2].Kind)
	assert.Equal(t, "[audio unavailable]", entries[2].Text)
	assert.Equal(t, EntryPlaceholder, entries[3].Kind)
	assert.Equal(t, EntryMedia, entries[4].Kind)
}

func TestBuildTimelineWithoutResolver(t *testing.T) {
	m := textMessage("img", "a", t0)
	m.ContentKind = lead.ContentImage
	m.MediaURL = "https://cdn/img.jpg"
	entries := BuildTimeline(context.Background(), []dto.Message{m}, nil)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://cdn/img.jpg", entries[0].MediaURL)
}
