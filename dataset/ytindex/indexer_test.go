package ytindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"
)

const testChannelID = "UCabcdefghijklmnopqrstuv"

func fakeYouTube(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "missing" {
			fmt.Fprint(w, `{"items":[]}`)
			return
		}
		fmt.Fprintf(w, `{"items":[{"id":{"kind":"youtube#channel","channelId":%q}}]}`, testChannelID)
	})
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"id":%q,
			"snippet":{"title":"Alpha","description":"d","publishedAt":"2020-01-01T00:00:00Z"},
			"statistics":{"subscriberCount":"10","videoCount":"3","viewCount":"100"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UUabcdefghijklmnopqrstuv"}}}]}`, r.URL.Query().Get("id"))
	})
	mux.HandleFunc("/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"nextPageToken":"p2","items":[{"contentDetails":{"videoId":"aaaaaaaaaaa"}},{"contentDetails":{"videoId":"bbbbbbbbbbb"}}]}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"contentDetails":{"videoId":"ccccccccccc"}}]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		for _, v := range r.URL.Query()["id"] {
			ids = append(ids, strings.Split(v, ",")...)
		}
		var items []string
		for i, id := range ids {
			items = append(items, fmt.Sprintf(`{"id":%q,
				"snippet":{"channelId":%q,"channelTitle":"Alpha","title":"Video %d","publishedAt":"2024-01-01T00:00:00Z","categoryId":"22"},
				"statistics":{"viewCount":"%d","likeCount":"5"},
				"contentDetails":{"duration":"PT1M%dS"}}`, id, testChannelID, i, 1000+i, i))
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.PagePause = 0
	return c
}

func TestClient_ResolveChannelID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, fakeYouTube(t))
	got, err := c.ResolveChannelID(context.Background(), "https://www.youtube.com/@alpha")
	if err != nil || got != testChannelID {
		t.Fatalf("ResolveChannelID=%q,%v", got, err)
	}
	if _, err := c.ResolveChannelID(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestIndexer_Run(t *testing.T) {
	t.Parallel()

	srv := fakeYouTube(t)
	out := t.TempDir()
	ix := &Indexer{Client: newTestClient(t, srv), OutDir: out, Logger: zaptest.NewLogger(t)}

	rows, sum, err := ix.Run(context.Background(), []string{"@alpha", "missing"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Channels != 1 || sum.ChannelsSkipped != 1 || sum.Videos != 3 {
		t.Fatalf("summary=%+v", sum)
	}
	if len(rows) != 3 || rows[0].VideoID != "aaaaaaaaaaa" || rows[2].VideoID != "ccccccccccc" {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].WatchURL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" || rows[0].ShortsURL != "https://www.youtube.com/shorts/aaaaaaaaaaa" {
		t.Fatalf("urls=%q %q", rows[0].WatchURL, rows[0].ShortsURL)
	}
	if rows[1].DurationS != "61" || rows[1].Views != "1001" || rows[1].Comments != "0" {
		t.Fatalf("row[1]=%+v", rows[1])
	}

	b, err := os.ReadFile(filepath.Join(out, "channels", testChannelID+".json"))
	if err != nil {
		t.Fatalf("channel meta: %v", err)
	}
	var meta ChannelMeta
	if err := json.Unmarshal(b, &meta); err != nil || meta.Title != "Alpha" || meta.ViewsTotal != 100 {
		t.Fatalf("meta=%+v err=%v", meta, err)
	}
	if _, err := os.Stat(filepath.Join(out, "videos", "bbbbbbbbbbb.json")); err != nil {
		t.Fatalf("video meta: %v", err)
	}
}
