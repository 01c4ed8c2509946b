package ytindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	ErrChannelNotFound = errors.New("ytindex: channel not found")
	ErrNoUploads       = errors.New("ytindex: channel has no uploads playlist")
)

var (
	channelURLRe = regexp.MustCompile(`/channel/(UC[0-9A-Za-z_-]{22})`)
	channelIDRe  = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)
	handleURLRe  = regexp.MustCompile(`youtube\.com/@([^/?#]+)`)
)

// videosBatchSize is the Data API cap on ids per videos.list call.
const videosBatchSize = 50

// Client wraps the YouTube Data API v3 calls the indexer needs.
type Client struct {
	service *youtube.Service

	// PagePause is slept between paginated calls. Zero disables it.
	PagePause time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
}

func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ytindex: api key required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{service: svc, PagePause: 50 * time.Millisecond, Sleep: sleepContext}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) pause(ctx context.Context) error {
	if c.PagePause <= 0 || c.Sleep == nil {
		return ctx.Err()
	}
	return c.Sleep(ctx, c.PagePause)
}

// ChannelIDFromURL returns the UC id embedded in a /channel/ URL, or the input itself if it is a bare id.
func ChannelIDFromURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := channelURLRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if channelIDRe.MatchString(s) {
		return s, true
	}
	return "", false
}

// channelSearchQuery picks the search term for inputs that carry no channel id:
// the handle from an @ URL, a bare @handle, or the input as-is.
func channelSearchQuery(s string) string {
	s = strings.TrimSpace(s)
	if m := handleURLRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimPrefix(s, "@")
}

// ResolveChannelID maps a channel URL, @handle, bare id, or free text to a channel id.
// Anything without an embedded id goes through search.list (type=channel).
func (c *Client) ResolveChannelID(ctx context.Context, input string) (string, error) {
	if id, ok := ChannelIDFromURL(input); ok {
		return id, nil
	}
	q := channelSearchQuery(input)
	if q == "" {
		return "", fmt.Errorf("%w: empty input", ErrChannelNotFound)
	}
	resp, err := c.service.Search.List([]string{"id"}).
		Q(q).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search channel %q: %w", q, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.ChannelId == "" {
		return "", fmt.Errorf("%w: %q", ErrChannelNotFound, input)
	}
	return resp.Items[0].Id.ChannelId, nil
}

// ChannelMeta is written to channels/<id>.json.
type ChannelMeta struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
	Subscribers uint64 `json:"subscribers"`
	VideosTotal uint64 `json:"videos_total"`
	ViewsTotal  uint64 `json:"views_total"`
}

// Channel fetches channel metadata and its uploads playlist id.
func (c *Client) Channel(ctx context.Context, channelID string) (ChannelMeta, string, error) {
	resp, err := c.service.Channels.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return ChannelMeta{}, "", fmt.Errorf("channels.list %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return ChannelMeta{}, "", fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	ch := resp.Items[0]
	meta := ChannelMeta{ChannelID: ch.Id}
	if ch.Snippet != nil {
		meta.Title = ch.Snippet.Title
		meta.Description = ch.Snippet.Description
		meta.PublishedAt = ch.Snippet.PublishedAt
	}
	if ch.Statistics != nil {
		meta.Subscribers = ch.Statistics.SubscriberCount
		meta.VideosTotal = ch.Statistics.VideoCount
		meta.ViewsTotal = ch.Statistics.ViewCount
	}
	var uploads string
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if uploads == "" {
		return meta, "", fmt.Errorf("%w: %s", ErrNoUploads, channelID)
	}
	return meta, uploads, nil
}

// PlaylistVideoIDs pages through a playlist and returns every video id in order.
func (c *Client) PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		call := c.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(50).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return ids, fmt.Errorf("playlistItems.list %s: %w", playlistID, err)
		}
		for _, it := range resp.Items {
			if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
				ids = append(ids, it.ContentDetails.VideoId)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
		if err := c.pause(ctx); err != nil {
			return ids, err
		}
	}
}

// Videos fetches snippet, statistics and contentDetails for ids, 50 per request.
func (c *Client) Videos(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	var out []*youtube.Video
	for start := 0; start < len(ids); start += videosBatchSize {
		end := min(start+videosBatchSize, len(ids))
		resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(ids[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return out, fmt.Errorf("videos.list [%d:%d]: %w", start, end, err)
		}
		out = append(out, resp.Items...)
		if err := c.pause(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}
