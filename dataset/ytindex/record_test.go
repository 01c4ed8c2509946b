package ytindex

import (
	"testing"

	"google.golang.org/api/youtube/v3"
)

func TestVideoRecordFromAPI_UnparsableDurationIsBlank(t *testing.T) {
	t.Parallel()

	rec := VideoRecordFromAPI(&youtube.Video{
		Id:             "abcdefghijk",
		ContentDetails: &youtube.VideoContentDetails{Duration: "P1Y"},
	})
	if rec.DurationS != nil {
		t.Fatalf("duration=%v, want nil", *rec.DurationS)
	}
	row := rec.IndexRow()
	if row.DurationS != "" || row.Views != "0" || row.VideoID != "abcdefghijk" {
		t.Fatalf("row=%+v", row)
	}
}
