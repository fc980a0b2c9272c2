package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoSuchVideo = errors.New("no such video")

// Video is an embeddable YouTube video shown on the site. Videos are
// identified by the (GroupName, Name) pair; at most one video is active.
type Video struct {
	ID           uint   `gorm:"primaryKey"`
	GroupName    string `gorm:"uniqueIndex:idx_videos_group_name;not null"`
	Name         string `gorm:"uniqueIndex:idx_videos_group_name;not null"`
	URL          string
	EmbeddedURL  string
	Description  string
	IncludeMedia bool
	IsActive     bool
}

func (v Video) String() string {
	return fmt.Sprintf("Video: %v/%v", v.GroupName, v.Name)
}

// EmbedURL converts a YouTube watch URL into the embeddable player URL.
// Both the long form (watch?v=ID) and the short youtu.be form are accepted.
func EmbedURL(watchURL string) (string, error) {
	u, err := url.Parse(watchURL)
	if err != nil {
		return "", fmt.Errorf("parse video url: %w", err)
	}
	id := u.Query().Get("v")
	if id == "" {
		id = strings.TrimPrefix(u.Path, "/")
	}
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("no video id in url %q", watchURL)
	}
	return "https://www.youtube.com/embed/" + id, nil
}

type DB interface {
	ListVideos(ctx context.Context) ([]Video, error)
	// ActiveVideo returns nil when no video is marked active.
	ActiveVideo(ctx context.Context) (*Video, error)
	// AddVideo is idempotent on the (group, name) pair. The embedded URL is
	// derived from the watch URL before storing.
	AddVideo(ctx context.Context, video Video) (*Video, error)
	// ActivateVideo atomically makes the given video the only active one.
	ActivateVideo(ctx context.Context, group, name string) error
}
