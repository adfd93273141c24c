package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 60 * time.Second
)

// URL parameters
const (
	PlaylistQueryKey = "list"
)

// Default values
const (
	DefaultPlaylistTitle = "Untitled Playlist"
	PlaylistSuffix       = " Playlist"
	MinPrefixLength      = 10
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// playlistFetcher lists the entries of a playlist id
type playlistFetcher func(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error)

// PlaylistParser expands playlist URLs into video entries
type PlaylistParser struct {
	timeout time.Duration
	fetch   playlistFetcher
}

// NewPlaylistParser creates a parser backed by the ytdlp library
func NewPlaylistParser() *PlaylistParser {
	return &PlaylistParser{
		timeout: DefaultPlaylistParseTimeout,
		fetch:   fetchPlaylistEntries,
	}
}

// SetTimeout sets the timeout for parsing operations
func (p *PlaylistParser) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// ParsePlaylist resolves a playlist URL into its entries
func (p *PlaylistParser) ParsePlaylist(ctx context.Context, rawURL string) (*model.Playlist, error) {
	playlistID, err := ExtractPlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	entries, err := p.fetch(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	playlist := model.NewPlaylist(rawURL)
	playlist.ID = playlistID
	for _, e := range entries {
		playlist.AddEntry(e)
	}
	playlist.Title = playlistTitle(playlist.Entries)
	return playlist, nil
}

func fetchPlaylistEntries(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]*model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		entries = append(entries, &model.PlaylistEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	return entries, nil
}

// ExtractPlaylistID returns the list= parameter of a playlist URL
func ExtractPlaylistID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid playlist URL %q: %w", rawURL, err)
	}
	id := u.Query().Get(PlaylistQueryKey)
	if id == "" {
		return "", fmt.Errorf("URL does not contain a playlist parameter: %s", rawURL)
	}
	return id, nil
}

// playlistTitle derives a title from the entries' common prefix
func playlistTitle(entries []*model.PlaylistEntry) string {
	if len(entries) == 0 {
		return DefaultPlaylistTitle
	}
	if len(entries) > 1 {
		prefix := commonPrefix(entries[0].Title, entries[1].Title)
		if len(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + PlaylistSuffix
		}
	}
	return entries[0].Title + PlaylistSuffix
}

func commonPrefix(s1, s2 string) string {
	n := min(len(s1), len(s2))
	for i := 0; i < n; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:n]
}
