package analysis

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kartr/kartr/internal/store"
)

const timestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"Timestamp", "YouTube URL", "Creator Name", "Creator Industry",
	"Sponsor Name", "Sponsor Industry", "Transcript Summary",
}

var ErrBadCSV = errors.New("invalid analysis CSV")

// ExportCSV writes every stored analysis, oldest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.store.ListAnalyses(ctx, 0)
	if err != nil {
		return err
	}
	return writeCSV(w, rows, true)
}

func writeCSV(w io.Writer, rows []store.Analysis, withTimestamp bool) error {
	cw := csv.NewWriter(w)
	header := csvHeader
	if !withTimestamp {
		header = csvHeader[1:]
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range rows {
		rec := []string{a.YouTubeURL, a.CreatorName, a.CreatorIndustry, a.SponsorName, a.SponsorIndustry, a.TranscriptSummary}
		if withTimestamp {
			rec = append([]string{a.CreatedAt.Local().Format(timestampLayout)}, rec...)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV loads rows in the export format. Columns are matched by header
// name; rows without a creator or sponsor are skipped. It returns the number
// of rows stored.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: missing header: %w", ErrBadCSV, err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"creator name", "sponsor name"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("%w: missing column %q", ErrBadCSV, required)
		}
	}

	imported := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("%w: %w", ErrBadCSV, err)
		}
		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		a := &store.Analysis{
			YouTubeURL:        field("youtube url"),
			CreatorName:       field("creator name"),
			CreatorIndustry:   field("creator industry"),
			SponsorName:       field("sponsor name"),
			SponsorIndustry:   field("sponsor industry"),
			TranscriptSummary: field("transcript summary"),
		}
		if a.CreatorName == "" || a.SponsorName == "" {
			continue
		}
		if ts, err := time.ParseInLocation(timestampLayout, field("timestamp"), time.Local); err == nil {
			a.CreatedAt = ts
		} else {
			a.CreatedAt = s.now()
		}
		if err := s.store.AddAnalysis(ctx, a); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
