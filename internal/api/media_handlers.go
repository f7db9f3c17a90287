package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/media"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
)

const maxUploadBytes = 10 << 20

type imageFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// serveMedia serves images and videos from the data directory. It is public
// so Instagram can fetch posted media.
func (s *Server) serveMedia(c echo.Context) error {
	name := c.Param("name")
	if !media.IsImage(name) && !media.IsVideo(name) {
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	}
	path, err := media.Resolve(s.DataDir, name)
	if err != nil {
		return err
	}
	return c.File(path)
}

func (s *Server) generateImage(c echo.Context) error {
	req := types.ImageRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.Images == nil {
		return errNotConfigured
	}
	res, err := s.Images.Generate(c.Request().Context(), req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// promotionalImage takes a multipart form with face_image and brand_image
// files plus prompt and brand_name fields.
func (s *Server) promotionalImage(c echo.Context) error {
	if s.Images == nil {
		return errNotConfigured
	}
	face, err := readUpload(c, "face_image")
	if err != nil {
		return err
	}
	brand, err := readUpload(c, "brand_image")
	if err != nil {
		return err
	}
	prompt := c.FormValue("prompt")
	if prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	res, err := s.Images.Promotional(c.Request().Context(), userID(c), face, brand, prompt, c.FormValue("brand_name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func readUpload(c echo.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, field+" is required")
	}
	if fh.Size > maxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, field+" is too large")
	}
	return readMultipart(fh)
}

func readMultipart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

func (s *Server) listImages(c echo.Context) error {
	names, err := media.ListImages(s.DataDir)
	if err != nil {
		return err
	}
	out := make([]imageFile, 0, len(names))
	for _, n := range names {
		out = append(out, imageFile{Name: n, URL: "/media/" + url.PathEscape(n)})
	}
	return c.JSON(http.StatusOK, out)
}

// postBluesky publishes an image from the data directory right away.
func (s *Server) postBluesky(c echo.Context) error {
	req := types.BlueskyPostRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	if s.Publisher == nil {
		return errNotConfigured
	}
	if !media.IsImage(req.Filename) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s is not an image", filepath.Base(req.Filename)))
	}
	path, err := media.Resolve(s.DataDir, req.Filename)
	if err != nil {
		return err
	}
	res, err := s.Publisher.Post(c.Request().Context(), social.PlatformBluesky, social.PostRequest{
		ContentType: social.ContentImage,
		MediaPath:   path,
		Caption:     req.Caption,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) schedulePost(c echo.Context) error {
	req := types.SchedulePostRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := s.Scheduler.Schedule(c.Request().Context(), userID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

func (s *Server) listPosts(c echo.Context) error {
	posts, err := s.Scheduler.List(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []store.ScheduledPost{}
	}
	return c.JSON(http.StatusOK, posts)
}
