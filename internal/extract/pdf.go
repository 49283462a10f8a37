package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

var pageFilePattern = regexp.MustCompile(`page_(\d+)`)

func init() {
	// keep pdfcpu from writing a config directory under $HOME
	api.DisableConfigDir()
}

// PDFText extracts the text shown on each page, pages separated by blank
// lines. pdfcpu works on files, so data is staged in a temp directory.
func PDFText(ctx context.Context, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "interviewrag-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove temp dir")
		}
	}()

	in := filepath.Join(dir, "resume.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF: %w", err)
	}
	out := filepath.Join(dir, "content")
	if err := os.Mkdir(out, 0o700); err != nil {
		return "", fmt.Errorf("failed to create content dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContentFile(in, out, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted content: %w", err)
	}

	type page struct {
		num  int
		text string
	}
	var pages []page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		num := 0
		if m := pageFilePattern.FindStringSubmatch(e.Name()); m != nil {
			num, _ = strconv.Atoi(m[1])
		}
		raw, err := os.ReadFile(filepath.Join(out, e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable content stream")
			continue
		}
		pages = append(pages, page{num: num, text: ContentText(raw)})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.text); t != "" {
			parts = append(parts, t)
		}
	}
	log.Debug().Int("pages", len(pages)).Msg("extracted PDF text")
	return strings.Join(parts, "\n\n"), nil
}
