package webui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"

	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/util/sliceutil"
)

type videosDataItem struct {
	Name        string
	Description string
	EmbeddedURL template.URL
	IsActive    bool
}

type videosDataGroup struct {
	Name   string
	Videos []videosDataItem
}

type videosData struct {
	Groups []videosDataGroup
}

type videosDataBuilder struct{}

func (videosDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	cfg := bc.Config

	videos, err := cfg.Media.ListVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	byGroup := sliceutil.GroupBy(videos, func(v media.Video) string { return v.GroupName })
	groups := make([]videosDataGroup, 0, len(byGroup))
	for name, vs := range byGroup {
		groups = append(groups, videosDataGroup{
			Name: name,
			Videos: sliceutil.Map(vs, func(v media.Video) videosDataItem {
				return videosDataItem{
					Name:        v.Name,
					Description: v.Description,
					EmbeddedURL: template.URL(v.EmbeddedURL),
					IsActive:    v.IsActive,
				}
			}),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	return &videosData{Groups: groups}, nil
}

func videosPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{}, templ, videosDataBuilder{}, "videos")
}
