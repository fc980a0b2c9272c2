package webui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/util/httputil"
	"github.com/kynzi/marblesite/internal/util/sliceutil"
)

type adminVideosItem struct {
	GroupName    string
	Name         string
	URL          string
	IncludeMedia bool
	IsActive     bool
}

type adminVideosData struct {
	CSRFField template.HTML
	Videos    []adminVideosItem
	Errors    []string
	Success   string
}

type adminVideosDataBuilder struct{}

func (adminVideosDataBuilder) list(ctx context.Context, bc builderCtx, d *adminVideosData) error {
	videos, err := bc.Config.Media.ListVideos(ctx)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	d.Videos = sliceutil.Map(videos, func(v media.Video) adminVideosItem {
		return adminVideosItem{
			GroupName:    v.GroupName,
			Name:         v.Name,
			URL:          v.URL,
			IncludeMedia: v.IncludeMedia,
			IsActive:     v.IsActive,
		}
	})
	return nil
}

func (b adminVideosDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	req := bc.Req
	cfg := bc.Config

	d := &adminVideosData{CSRFField: csrf.TemplateField(req)}

	switch req.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := req.ParseForm(); err != nil {
			return nil, httputil.MakeError(http.StatusBadRequest, "bad form data")
		}
		switch action := req.FormValue("action"); action {
		case "add":
			group := strings.TrimSpace(req.FormValue("group"))
			name := strings.TrimSpace(req.FormValue("name"))
			url := strings.TrimSpace(req.FormValue("url"))
			if group == "" {
				d.Errors = append(d.Errors, "Group name is required")
			}
			if name == "" {
				d.Errors = append(d.Errors, "Video name is required")
			}
			if _, err := media.EmbedURL(url); err != nil {
				d.Errors = append(d.Errors, "URL must be a YouTube watch link")
			}
			if len(d.Errors) == 0 {
				video, err := cfg.Media.AddVideo(ctx, media.Video{
					GroupName:    group,
					Name:         name,
					URL:          url,
					Description:  strings.TrimSpace(req.FormValue("description")),
					IncludeMedia: req.FormValue("include") != "",
				})
				if err != nil {
					return nil, fmt.Errorf("add video: %w", err)
				}
				d.Success = fmt.Sprintf("Added %v", video)
			}
		case "activate":
			group, name := req.FormValue("group"), req.FormValue("name")
			if err := cfg.Media.ActivateVideo(ctx, group, name); err != nil {
				if errors.Is(err, media.ErrNoSuchVideo) {
					d.Errors = append(d.Errors, "No such video")
					break
				}
				return nil, fmt.Errorf("activate video: %w", err)
			}
			d.Success = fmt.Sprintf("%v/%v is now the featured video", group, name)
		default:
			return nil, httputil.MakeError(http.StatusBadRequest, "unknown action")
		}
	default:
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}

	if err := b.list(ctx, bc, d); err != nil {
		return nil, err
	}
	return d, nil
}

func adminVideosPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{RequireAdmin: true}, templ, adminVideosDataBuilder{}, "admin_videos")
}
