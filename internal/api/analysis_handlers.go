package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kartr/kartr/api/types"
)

const (
	defaultAnalysisLimit = 100
	maxAnalysisLimit     = 1000
)

func (s *Server) analyzeVideo(c echo.Context) error {
	req := types.VideoURLRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.Analysis.AnalyzeVideo(c.Request().Context(), userID(c), req.YouTubeURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) analyzeTranscript(c echo.Context) error {
	req := types.VideoURLRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.Analysis.AnalyzeTranscript(c.Request().Context(), userID(c), req.YouTubeURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ask(c echo.Context) error {
	req := types.AskRequest{}
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.Analysis.Ask(c.Request().Context(), req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) listAnalyses(c echo.Context) error {
	limit := defaultAnalysisLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxAnalysisLimit)
	}
	rows, err := s.Analysis.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) exportAnalyses(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="analysis_results.csv"`)
	res.WriteHeader(http.StatusOK)
	return s.Analysis.ExportCSV(c.Request().Context(), res)
}

// importAnalyses accepts the CSV either as the "file" form field or as the
// raw request body.
func (s *Server) importAnalyses(c echo.Context) error {
	var r io.Reader = c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	n, err := s.Analysis.ImportCSV(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) graphJSON(c echo.Context) error {
	g, err := s.Analysis.Graph(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (s *Server) graphDOT(c echo.Context) error {
	g, err := s.Analysis.Graph(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/vnd.graphviz; charset=utf-8", []byte(g.DOT()))
}
