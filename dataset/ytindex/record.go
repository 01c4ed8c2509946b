package ytindex

import (
	"strconv"

	"google.golang.org/api/youtube/v3"

	"github.com/theimaginaryfoundation/frame-atlas/dataset"
)

// VideoRecord is written to videos/<id>.json and becomes one index CSV row.
type VideoRecord struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	VideoID      string `json:"video_id"`
	WatchURL     string `json:"watch_url"`
	ShortsURL    string `json:"shorts_url"`
	Title        string `json:"title"`
	PublishedAt  string `json:"publishedAt"`
	Views        uint64 `json:"views"`
	Likes        uint64 `json:"likes"`
	Comments     uint64 `json:"comments"`
	// DurationS is null when the API duration could not be parsed.
	DurationS  *int64 `json:"duration_s"`
	CategoryID string `json:"categoryId"`
}

func VideoRecordFromAPI(v *youtube.Video) VideoRecord {
	rec := VideoRecord{
		VideoID:   v.Id,
		WatchURL:  dataset.WatchURL(v.Id),
		ShortsURL: dataset.ShortsURL(v.Id),
	}
	if sn := v.Snippet; sn != nil {
		rec.ChannelID = sn.ChannelId
		rec.ChannelTitle = sn.ChannelTitle
		rec.Title = sn.Title
		rec.PublishedAt = sn.PublishedAt
		rec.CategoryID = sn.CategoryId
	}
	if st := v.Statistics; st != nil {
		rec.Views = st.ViewCount
		rec.Likes = st.LikeCount
		rec.Comments = st.CommentCount
	}
	if cd := v.ContentDetails; cd != nil {
		if secs, ok := ParseISODuration(cd.Duration); ok {
			rec.DurationS = &secs
		}
	}
	return rec
}

func (r VideoRecord) IndexRow() dataset.IndexRow {
	row := dataset.IndexRow{
		ChannelID:    r.ChannelID,
		ChannelTitle: r.ChannelTitle,
		VideoID:      r.VideoID,
		WatchURL:     r.WatchURL,
		ShortsURL:    r.ShortsURL,
		Title:        r.Title,
		PublishedAt:  r.PublishedAt,
		Views:        strconv.FormatUint(r.Views, 10),
		Likes:        strconv.FormatUint(r.Likes, 10),
		Comments:     strconv.FormatUint(r.Comments, 10),
		CategoryID:   r.CategoryID,
	}
	if r.DurationS != nil {
		row.DurationS = strconv.FormatInt(*r.DurationS, 10)
	}
	return row
}
