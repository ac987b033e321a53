package inbox

import (
	"context"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

// MediaResolver turns a message media URL into something renderable.
type MediaResolver interface {
	Resolve(ctx context.Context, kind lead.ContentKind, mediaURL string) (string, error)
}

type EntryKind int

const (
	EntryText EntryKind = iota + 1
	EntryMedia
	// EntryPlaceholder stands in for media that could not be resolved.
	EntryPlaceholder
)

type Entry struct {
	Kind     EntryKind
	Message  dto.Message
	MediaURL string
	Caption  string
	Text     string
}

// BuildTimeline maps messages to renderable entries in the order given.
// A resolver failure degrades that entry to a placeholder.
func BuildTimeline(ctx context.Context, messages []dto.Message, resolver MediaResolver) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		if !m.ContentKind.RequiresMedia() {
			entries = append(entries, Entry{Kind: EntryText, Message: m, Text: m.Content})
			continue
		}

		entry := Entry{Kind: EntryMedia, Message: m, MediaURL: m.MediaURL, Caption: m.Content}
		switch {
		case m.MediaURL == "":
			entry = placeholder(m)
		case resolver != nil:
			u, err := resolver.Resolve(ctx, m.ContentKind, m.MediaURL)
			if err != nil {
				entry = placeholder(m)
			} else {
				entry.MediaURL = u
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func placeholder(m dto.Message) Entry {
	return Entry{
		Kind:    EntryPlaceholder,
		Message: m,
		Caption: m.Content,
		Text:    "[" + string(m.ContentKind) + " unavailable]",
	}
}
